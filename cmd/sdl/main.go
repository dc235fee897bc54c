/*
 *   Copyright (c) 2024 Gustavo Lopez <git.gustavolopez.xyz@gmail.com>
 *   All rights reserved.
 */
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/guslan/chip8/config"
	"github.com/guslan/chip8/console"
	chip8sdl "github.com/guslan/chip8/sdl"
)

func main() {
	configPath := flag.String("config", "chip8.toml", "The configuration file, defaults are used when it does not exist.")
	speed := flag.Uint("speed", 0, fmt.Sprintf("The speed in Hz, in the range [%d, %d]. Overrides the configuration file.", console.MinSpeed, console.MaxSpeed))
	mute := flag.Bool("mute", false, "Turn off the buzzer (defaults = false).")
	paused := flag.Bool("paused", false, "Wait for space before running the program (defaults = false).")
	debug := flag.Bool("debug", false, "Show debug information (defaults = false).")

	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "must provide the path to a rom as an argument")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Error reading configuration", slog.Any("error", err))
		os.Exit(1)
	}

	fg, bg := cfg.Colors()
	app := chip8sdl.NewApp(func(config *chip8sdl.AppConfig) {
		config.MachineOptions = cfg.MachineOptions()
		config.ConsoleOptions = append(cfg.ConsoleOptions(), func(c *console.Config) {
			c.StartPaused = *paused
			if *speed > 0 {
				c.SpeedInHz = *speed
			}
		})
		config.KeyboardLayout = cfg.Layout()
		config.PixelSize = int32(cfg.Display.Scale)
		config.Foreground = sdl.Color(fg)
		config.Background = sdl.Color(bg)
		config.Tone = cfg.Tone()
		config.Mute = *mute
	})

	if err := app.Console().LoadFile(flag.Arg(0)); err != nil {
		slog.Error("Error loading program", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		slog.Error("Emulator stopped", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}
