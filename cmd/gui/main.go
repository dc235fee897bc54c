/*
 *   Copyright (c) 2024 Gustavo Lopez <git.gustavolopez.xyz@gmail.com>
 *   All rights reserved.
 */
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/guslan/chip8/config"
	"github.com/guslan/chip8/console"
	"github.com/guslan/chip8/gui"
)

func main() {
	autostart := flag.Bool("start", false, "Starts the console automatically if there is a program loaded (defaults = false).")
	debug := flag.Bool("debug", false, "Show debug information for the console (defaults = false).")
	initialSpeed := flag.Uint("speed", 0, fmt.Sprintf("The starting speed of the CPU in Hz. It has to be in the range [%d, %d]. Overrides the configuration file.", console.MinSpeed, console.MaxSpeed))
	configPath := flag.String("config", "chip8.toml", "The configuration file, defaults are used when it does not exist.")
	sound := flag.Bool("sound", false, "Play the buzzer on the sound card (defaults = false).")

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

	var buzzer console.Buzzer = console.NewDummyBuzzer()
	if *sound {
		speaker := console.NewSpeakerBuzzer(func(c *console.SpeakerBuzzerConfig) {
			c.Tone = cfg.Tone()
			c.Sample = cfg.Audio.Sample
		})
		defer speaker.Close()
		buzzer = speaker
	}

	fg, bg := cfg.Colors()
	app := gui.NewApp(func(config *gui.AppConfig) {
		config.MachineOptions = cfg.MachineOptions()
		config.ConsoleOptions = append(cfg.ConsoleOptions(), func(c *console.Config) {
			if *initialSpeed > 0 {
				c.SpeedInHz = *initialSpeed
			}
		})
		config.Buzzer = buzzer
		config.KeyboardLayout = cfg.Layout()
		config.PixelSize = int32(cfg.Display.Scale)
		config.Foreground = fg
		config.Background = bg
	})

	if flag.NArg() > 0 {
		app.Load(flag.Arg(0))
	}

	if err := app.Run(*autostart); err != nil {
		slog.Error("Error running the console", slog.Any("error", err))
		os.Exit(1)
	}
}
