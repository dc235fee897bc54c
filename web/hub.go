package web

import "sync"

// hub fans values out to subscribers without ever blocking the publisher.
// A subscriber that falls behind loses its oldest pending values.
type hub[T any] struct {
	mu          sync.Mutex
	subscribers map[chan T]struct{}
}

func newHub[T any]() *hub[T] {
	return &hub[T]{
		subscribers: map[chan T]struct{}{},
	}
}

// subscribe returns the channel of the subscriber and the function that
// removes it. size is the number of values kept while the subscriber is busy.
func (h *hub[T]) subscribe(size int) (<-chan T, func()) {
	ch := make(chan T, max(size, 1))

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subscribers, ch)
		h.mu.Unlock()
	}
}

func (h *hub[T]) publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- v:
			continue
		default:
		}

		// drop the oldest value
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

func (h *hub[T]) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subscribers)
}
