// Package web serves a console over HTTP: control endpoints, a websocket
// display with keypad input and a websocket debugger.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guslan/chip8"
	"github.com/guslan/chip8/console"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	console  *console.Console
	display  *WebsocketDisplay
	debugger *HttpDebugger

	mux *http.ServeMux
}

type ServerConfig struct {
	MachineOptions []chip8.MachineConfigCb
	ConsoleOptions []console.ConfigCb
	Buzzer         console.Buzzer
	UseDebugger    bool
	// StartPaused waits for /start before running the program
	StartPaused bool
	// StaticDir is served at / when set
	StaticDir string
}

type ServerConfigCb func(config *ServerConfig)

func NewServer(configs ...ServerConfigCb) *Server {
	config := &ServerConfig{
		Buzzer:      console.NewDummyBuzzer(),
		UseDebugger: false,
		StartPaused: true,
	}
	for _, cb := range configs {
		cb(config)
	}

	s := &Server{
		display: NewWebsocketDisplay(),
		mux:     http.NewServeMux(),
	}

	consoleOptions := append([]console.ConfigCb{func(c *console.Config) {
		c.Display = s.display
		c.Buzzer = config.Buzzer
		c.StartPaused = config.StartPaused
		// a faulty program must not take the server down
		c.HaltOnError = false
	}}, config.ConsoleOptions...)

	s.console = console.NewConsole(chip8.NewMachine(config.MachineOptions...), consoleOptions...)
	if config.UseDebugger {
		s.debugger = NewHttpDebugger(s.console)
	}

	s.routes(config.StaticDir)

	return s
}

func (server *Server) routes(staticDir string) {
	server.mux.HandleFunc("POST /load", server.handleLoad)
	server.mux.HandleFunc("GET /state", server.handleState)
	server.mux.HandleFunc("POST /speed", server.handleSpeed)

	server.mux.HandleFunc("/start", server.control("Starting", func(c *console.Console) error {
		c.Start()
		return nil
	}))
	server.mux.HandleFunc("/stop", server.control("Stopping", func(c *console.Console) error {
		c.Stop()
		return nil
	}))
	server.mux.HandleFunc("/reset", server.control("Stopping and resetting", func(c *console.Console) error {
		c.Stop()
		c.Reset()
		return nil
	}))
	server.mux.HandleFunc("/step", server.control("Single step", func(c *console.Console) error {
		return c.StepOnce()
	}))

	server.mux.HandleFunc("/display", server.handleDisplay)

	if server.debugger != nil {
		debugger := server.debugger.Handler()
		server.mux.Handle("/debugger", debugger)
		server.mux.Handle("GET /events", debugger)
	}

	if staticDir != "" {
		server.mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
}

func (server *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	server.mux.ServeHTTP(w, r)
}

func (server *Server) Console() *console.Console {
	return server.console
}

func (server *Server) Debugger() *HttpDebugger {
	return server.debugger
}

func (server *Server) Display() *WebsocketDisplay {
	return server.display
}

// Boot boots the console without starting the loop.
func (server *Server) Boot() error {
	return server.console.Boot()
}

func (server *Server) Speed(s uint) {
	server.console.SetSpeedInHz(s)
}

// LoadProgram loads the program into memory and sets the PC to the start-of-program address
func (server *Server) LoadProgram(program []byte) error {
	return server.console.Load(program)
}

// Listen runs the console and serves HTTP on addr until ctx is done.
func (server *Server) Listen(ctx context.Context, addr string) error {
	if err := server.Boot(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server,
		// websockets are hijacked, they follow ctx to know when to close
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		return server.console.Loop(ctx)
	})
	g.Go(func() error {
		slog.Info("Listening", slog.String("addr", addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		slog.Info("Shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func setHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Expose-Headers", "Content-Type")

	w.Header().Set("Cache-Control", "no-cache")
}

func (server *Server) writeState(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(server.console.Snapshot()); err != nil {
		slog.Error("Error encoding state", slog.Any("error", err))
	}
}

// control runs action and answers with the new state.
func (server *Server) control(msg string, action func(c *console.Console) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setHeaders(w)

		slog.Info(msg)
		if err := action(server.console); err != nil {
			slog.Error("Error running "+r.URL.Path, slog.Any("error", err))
			server.writeState(w, http.StatusConflict)
			return
		}

		server.writeState(w, http.StatusOK)
	}
}

func (server *Server) handleState(w http.ResponseWriter, r *http.Request) {
	setHeaders(w)
	server.writeState(w, http.StatusOK)
}

// handleLoad replaces the program with the request body.
func (server *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	setHeaders(w)

	program, err := io.ReadAll(io.LimitReader(r.Body, chip8.MaxRomSize+1))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := server.console.Load(program); err != nil {
		slog.Error("Error loading program", slog.Any("error", err))

		status := http.StatusBadRequest
		if errors.Is(err, chip8.ErrRomTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		http.Error(w, err.Error(), status)
		return
	}

	server.writeState(w, http.StatusOK)
}

// handleSpeed sets the speed to the hz query parameter.
func (server *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	setHeaders(w)

	hz, err := strconv.ParseUint(r.URL.Query().Get("hz"), 10, 32)
	if err != nil {
		http.Error(w, "hz must be a positive integer", http.StatusBadRequest)
		return
	}

	server.Speed(uint(hz))
	slog.Info("Speed changed", slog.Uint64("hz", uint64(server.console.SpeedInHz())))

	server.writeState(w, http.StatusOK)
}
