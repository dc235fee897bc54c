/*
 *   Copyright (c) 2024 Gustavo Lopez <git.gustavolopez.xyz@gmail.com>
 *   All rights reserved.
 */
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"

	"github.com/guslan/chip8/config"
	"github.com/guslan/chip8/console"
	"github.com/guslan/chip8/web"
)

func main() {
	addr := flag.String("addr", ":9999", "The address of the server (default = :9999)")
	speed := flag.Uint("speed", 0, "Speed in instructions per second. Overrides the configuration file.")
	configPath := flag.String("config", "chip8.toml", "The configuration file, defaults are used when it does not exist.")
	staticDir := flag.String("static", "", "Serve the files of this directory at /.")
	autostart := flag.Bool("start", false, "Start the program right away instead of waiting for /start.")
	stats := flag.String("stats", "", "Serve runtime statistics at this address, e.g. localhost:12600.")
	debug := flag.Bool("debug", false, "Show debug information (defaults = false).")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Error reading configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if *stats != "" {
		launchStats(*stats)
	}

	var buzzer console.Buzzer = console.NewDummyBuzzer()
	if cfg.Audio.Wav != "" {
		wav := console.NewWavBuzzer(cfg.Audio.Wav, func(c *console.WavBuzzerConfig) {
			c.Tone = cfg.Tone()
		})
		defer func() {
			if err := wav.Close(); err != nil {
				slog.Error("Error closing recording", slog.Any("error", err))
			}
		}()
		buzzer = wav
	}

	server := web.NewServer(func(config *web.ServerConfig) {
		config.MachineOptions = cfg.MachineOptions()
		config.ConsoleOptions = cfg.ConsoleOptions()
		config.Buzzer = buzzer
		config.UseDebugger = true
		config.StartPaused = !*autostart
		config.StaticDir = *staticDir
	})
	if *speed > 0 {
		server.Speed(*speed)
	}

	if flag.NArg() > 0 {
		if err := server.Console().LoadFile(flag.Arg(0)); err != nil {
			slog.Error("Error loading program", slog.Any("error", err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Listen(ctx, *addr); err != nil {
		slog.Error("Server stopped", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

// launchStats serves the runtime statistics at addr/debug/statsview.
func launchStats(addr string) {
	viewer.SetConfiguration(viewer.WithAddr(addr))
	mgr := statsview.New()
	go func() {
		if err := mgr.Start(); err != nil {
			slog.Error("Stats server stopped", slog.Any("error", err))
		}
	}()

	slog.Info("Stats server available", slog.String("url", "http://"+addr+"/debug/statsview"))
}
