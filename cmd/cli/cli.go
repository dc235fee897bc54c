/*
 *   Copyright (c) 2024 Gustavo Lopez <git.gustavolopez.xyz@gmail.com>
 *   All rights reserved.
 */
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/guslan/chip8"
	"github.com/guslan/chip8/config"
	"github.com/guslan/chip8/console"
	"github.com/guslan/chip8/web"
)

func main() {
	configPath := flag.String("config", "chip8.toml", "The configuration file, defaults are used when it does not exist.")
	speed := flag.Uint("speed", 0, fmt.Sprintf("The speed in Hz, in the range [%d, %d]. Overrides the configuration file.", console.MinSpeed, console.MaxSpeed))
	noTerm := flag.Bool("noterm", false, "Turn off the terminal display and keyboard of the emulator.")
	wavPath := flag.String("wav", "", "Record the buzzer into this WAV file. Overrides the configuration file.")
	useSpeaker := flag.Bool("speaker", false, "Play the buzzer on the sound card.")
	debuggerAddr := flag.String("debugger", "", "Serve the debugger on this address, e.g. localhost:9999.")
	debug := flag.Bool("debug", false, "Show debug information (defaults = false).")

	flag.Parse()

	setupLogger(*debug)

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "must provide the path to a rom as an argument")
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *configPath, *speed, *noTerm, *wavPath, *useSpeaker, *debuggerAddr); err != nil {
		slog.Error("Emulator stopped", slog.Any("error", err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogger logs to stderr, the terminal display owns stdout.
func setupLogger(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func run(romPath, configPath string, speed uint, noTerm bool, wavPath string, useSpeaker bool, debuggerAddr string) (rerr error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if wavPath != "" {
		cfg.Audio.Wav = wavPath
	}

	m := chip8.NewMachine(cfg.MachineOptions()...)
	if err := console.LoadFile(m, romPath); err != nil {
		return err
	}

	var display console.Display = console.NewDummyDisplay()
	if !noTerm {
		display = cfg.TerminalDisplay()
	}

	var buzzer console.Buzzer = console.NewDummyBuzzer()
	switch {
	case useSpeaker:
		speaker := console.NewSpeakerBuzzer(func(c *console.SpeakerBuzzerConfig) {
			c.Tone = cfg.Tone()
			c.Sample = cfg.Audio.Sample
		})
		defer speaker.Close()
		buzzer = speaker

	case cfg.Audio.Wav != "":
		wav := console.NewWavBuzzer(cfg.Audio.Wav, func(c *console.WavBuzzerConfig) {
			c.Tone = cfg.Tone()
		})
		defer func() {
			rerr = errors.Join(rerr, wav.Close())
		}()
		buzzer = wav
	}

	c := console.NewConsole(m, append(cfg.ConsoleOptions(), func(c *console.Config) {
		c.Display = display
		c.Buzzer = buzzer
		if speed > 0 {
			c.SpeedInHz = speed
		}
	})...)
	if err := c.Boot(); err != nil {
		return err
	}

	if debuggerAddr != "" {
		deb := web.NewHttpDebugger(c)
		go func() {
			slog.Info("Debugger listening", slog.String("addr", debuggerAddr))
			if err := http.ListenAndServe(debuggerAddr, deb.Handler()); err != nil {
				slog.Error("Debugger stopped", slog.Any("error", err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	ctx, quit := context.WithCancel(ctx)
	defer quit()

	if !noTerm {
		kb := console.NewTerminalKeyboard(c, cfg.Layout())
		kb.Unmapped = func(r rune) {
			// escape
			if r == 0x1B {
				quit()
			}
		}
		g.Go(func() error {
			return kb.Run(ctx)
		})
	}

	g.Go(func() error {
		defer quit()
		return c.Loop(ctx)
	})

	return g.Wait()
}
