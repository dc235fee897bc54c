package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/guslan/chip8"
	"github.com/guslan/chip8/console"
)

// EventSize is the length of a debugger event.
const EventSize = 2 + 2 + chip8.NumRegisters + 2 + 1 + 2*chip8.StackDepth + 2 + 2

type HttpDebugger struct {
	console       *console.Console
	currentOpCode uint16

	// SendEvery sends an event every SendEvery instructions
	SendEvery uint64

	events *hub[[]byte]
	states *hub[chip8.State]
}

// NewHttpDebugger creates a new debugger and registers its hooks on c.
func NewHttpDebugger(c *console.Console) *HttpDebugger {
	deb := &HttpDebugger{
		console:   c,
		SendEvery: 1,
		events:    newHub[[]byte](),
		states:    newHub[chip8.State](),
	}

	c.AddBeforeStepHook(deb.beforeStep)
	c.AddAfterStepHook(deb.afterStep)
	c.AddAfterFrameHook(deb.afterFrame)

	return deb
}

// Handler serves the debugger endpoints alone, for hosts without a web server.
func (d *HttpDebugger) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debugger", d.handleWebsocket)
	mux.HandleFunc("GET /events", d.handleEvents)

	return mux
}

var upgrader = websocket.Upgrader{
	// the control endpoints answer any origin too
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (d *HttpDebugger) beforeStep(m *chip8.Machine) {
	d.currentOpCode, _ = m.OpCodeAt(m.Pc())
}

func (d *HttpDebugger) afterStep(m *chip8.Machine) {
	if d.events.len() == 0 {
		return
	}

	if d.SendEvery <= 1 || m.Cycles()%d.SendEvery == 0 {
		d.events.publish(formatAsEvent(d.currentOpCode, m))
	}
}

func (d *HttpDebugger) afterFrame(m *chip8.Machine) {
	if d.states.len() > 0 {
		d.states.publish(m.State())
	}
}

// current builds the event of the instruction about to run.
func (d *HttpDebugger) current() []byte {
	var event []byte
	d.console.WithMachine(func(m *chip8.Machine) {
		opCode, _ := m.OpCodeAt(m.Pc())
		event = formatAsEvent(opCode, m)
	})

	return event
}

// handleWebsocket sends a binary event after every instruction.
func (d *HttpDebugger) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	slog.Info("Connecting to debugger", slog.String("remote", r.RemoteAddr))
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Error upgrading debugger connection", slog.Any("error", err))
		return
	}
	defer conn.Close()

	events, unsubscribe := d.events.subscribe(64)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	slog.Info("Listening for events")
	event := d.current()
	for {
		if err := conn.WriteMessage(websocket.BinaryMessage, event); err != nil {
			slog.Error("Error writing debugger message", slog.Any("error", err))
			return
		}

		select {
		case <-ctx.Done():
			slog.Info("Disconnecting from debugger", slog.String("remote", r.RemoteAddr))
			return
		case event = <-events:
		}
	}
}

// handleEvents streams the registers after every frame as server-sent events.
func (d *HttpDebugger) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	setHeaders(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")

	states, unsubscribe := d.states.subscribe(1)
	defer unsubscribe()

	state := d.console.Snapshot().State
	for {
		data, err := json.Marshal(state)
		if err != nil {
			slog.Error("Error encoding state", slog.Any("error", err))
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()

		select {
		case <-r.Context().Done():
			return
		case state = <-states:
		}
	}
}

// formatAsEvent encodes the registers, big endian:
// opcode(2) pc(2) V0..VF(16) I(2) sp(1) stack(32) dt(1) st(1) width(1) height(1)
func formatAsEvent(opCode uint16, m *chip8.Machine) []byte {
	s := m.State()
	buf := make([]byte, 0, EventSize)

	buf = append(buf, byte(opCode>>8), byte(opCode))
	buf = append(buf, byte(s.Pc>>8), byte(s.Pc))
	buf = append(buf, s.V[:]...)
	buf = append(buf, byte(s.I>>8), byte(s.I))
	buf = append(buf, s.Sp)
	for _, addr := range s.Stack {
		buf = append(buf, byte(addr>>8), byte(addr))
	}
	buf = append(buf, s.Dt, s.St)
	buf = append(buf, chip8.ScreenWidth, chip8.ScreenHeight)

	return buf
}
