package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/term"

	"github.com/guslan/chip8"
)

// DefaultReleaseAfter is how long a key stays pressed after the last
// character the terminal sent for it.
const DefaultReleaseAfter = 150 * time.Millisecond

// KeySetter receives key events, both *chip8.Machine and *Console are key setters.
type KeySetter interface {
	SetKey(k byte, pressed bool) error
}

// TerminalKeyboard reads keys from a TTY in cbreak mode.
//
// Terminals only report characters, never releases: a key is held while
// it keeps repeating and released ReleaseAfter after the last repeat.
type TerminalKeyboard struct {
	Device       string
	ReleaseAfter time.Duration
	// Unmapped receives the characters that are not part of the layout
	Unmapped func(r rune)

	target KeySetter
	lookup map[rune]byte

	mu        sync.Mutex
	deadlines map[byte]time.Time
}

func NewTerminalKeyboard(target KeySetter, layout chip8.KeyboardLayout) *TerminalKeyboard {
	return &TerminalKeyboard{
		Device:       "/dev/tty",
		ReleaseAfter: DefaultReleaseAfter,
		target:       target,
		lookup:       chip8.LookupMap(layout),
		deadlines:    map[byte]time.Time{},
	}
}

// Run reads the terminal until ctx is done. The terminal mode is restored on return.
func (kb *TerminalKeyboard) Run(ctx context.Context) (rerr error) {
	t, err := term.Open(kb.Device, term.CBreakMode, term.ReadTimeout(kb.ReleaseAfter/3))
	if err != nil {
		return fmt.Errorf("terminal keyboard: %w", err)
	}
	defer func() {
		rerr = errors.Join(rerr, t.Restore(), t.Close())
	}()

	slog.Debug("Reading keys from terminal", slog.String("device", kb.Device))

	buf := make([]byte, 64)
	for ctx.Err() == nil {
		n, err := t.Read(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("terminal keyboard: %w", err)
		}

		now := time.Now()
		kb.Feed(buf[:n], now)
		kb.Expire(now)
	}

	return nil
}

// Feed presses the keys of the characters in p.
func (kb *TerminalKeyboard) Feed(p []byte, now time.Time) {
	for len(p) > 0 {
		r, size := utf8.DecodeRune(p)
		p = p[size:]

		k, ok := kb.lookup[unicode.ToLower(r)]
		if !ok {
			if kb.Unmapped != nil {
				kb.Unmapped(r)
			}
			continue
		}

		kb.mu.Lock()
		kb.deadlines[k] = now.Add(kb.ReleaseAfter)
		kb.mu.Unlock()

		if err := kb.target.SetKey(k, true); err != nil {
			slog.Warn("Key press rejected", slog.Int("key", int(k)), slog.Any("error", err))
		}
	}
}

// Expire releases the keys whose deadline passed.
func (kb *TerminalKeyboard) Expire(now time.Time) {
	kb.mu.Lock()
	var released []byte
	for k, deadline := range kb.deadlines {
		if !now.Before(deadline) {
			released = append(released, k)
			delete(kb.deadlines, k)
		}
	}
	kb.mu.Unlock()

	for _, k := range released {
		if err := kb.target.SetKey(k, false); err != nil {
			slog.Warn("Key release rejected", slog.Int("key", int(k)), slog.Any("error", err))
		}
	}
}
