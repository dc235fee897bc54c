package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/guslan/chip8"
	"github.com/guslan/chip8/console"
)

// WebsocketDisplay sends every rendered frame to the connected browsers
// as a 256-byte binary message, the packed framebuffer.
type WebsocketDisplay struct {
	frames *hub[chip8.Framebuffer]
}

func NewWebsocketDisplay() *WebsocketDisplay {
	return &WebsocketDisplay{
		frames: newHub[chip8.Framebuffer](),
	}
}

// Boot implements console.Display.
func (d *WebsocketDisplay) Boot() error {
	return nil
}

// Render implements console.Display.
func (d *WebsocketDisplay) Render(fb chip8.Framebuffer) error {
	d.frames.publish(fb)

	return nil
}

// Clients is the number of connected browsers.
func (d *WebsocketDisplay) Clients() int {
	return d.frames.len()
}

// handleDisplay streams frames to the client and reads its key events.
// Key events are binary messages of two bytes: the key and 1 for pressed
// or 0 for released.
func (server *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Error upgrading display connection", slog.Any("error", err))
		return
	}
	defer conn.Close()

	frames, unsubscribe := server.display.frames.subscribe(1)
	defer unsubscribe()

	slog.Info("Connecting to display", slog.String("remote", r.RemoteAddr))
	defer slog.Info("Disconnecting from display", slog.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go readKeys(cancel, conn, server.console)

	fb := server.console.Snapshot().Framebuffer
	for {
		if err := conn.WriteMessage(websocket.BinaryMessage, fb[:]); err != nil {
			slog.Error("Error writing display message", slog.Any("error", err))
			return
		}

		select {
		case <-ctx.Done():
			return
		case fb = <-frames:
		}
	}
}

func readKeys(cancel context.CancelFunc, conn *websocket.Conn, keys console.KeySetter) {
	defer cancel()

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		if kind != websocket.BinaryMessage || len(msg) != 2 {
			slog.Warn("Invalid key message", slog.Int("length", len(msg)))
			continue
		}

		if err := keys.SetKey(msg[0], msg[1] != 0); err != nil {
			slog.Warn("Key rejected", slog.Any("error", err))
		}
	}
}
