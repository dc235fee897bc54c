// Package config reads the TOML settings shared by every host.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/guslan/chip8"
	"github.com/guslan/chip8/console"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Machine struct {
	// Speed in instructions per second
	Speed       uint   `toml:"speed"`
	FontAddress uint16 `toml:"font_address"`
}

type Quirks struct {
	ShiftUsesVy      bool `toml:"shift_uses_vy"`
	VfReset          bool `toml:"vf_reset"`
	JumpUsesVx       bool `toml:"jump_uses_vx"`
	MemoryMovesIndex bool `toml:"memory_moves_index"`
	ClipSprites      bool `toml:"clip_sprites"`
}

type Keyboard struct {
	// Layout lists the keyboard key of each keypad key, from 0x0 to 0xF
	Layout string `toml:"layout"`
}

type Display struct {
	// On and Off are the characters of the terminal display
	On  string `toml:"on"`
	Off string `toml:"off"`
	// Foreground and Background are #RRGGBB colours of the desktop hosts
	Foreground string `toml:"foreground"`
	Background string `toml:"background"`
	// Scale is the size in screen pixels of a machine pixel
	Scale int `toml:"scale"`
}

type Audio struct {
	Frequency int     `toml:"frequency"`
	Volume    float64 `toml:"volume"`
	// Wav records the buzzer to this file when set
	Wav string `toml:"wav"`
	// Sample is an MP3 file played by the speaker instead of the square wave
	Sample string `toml:"sample"`
}

type Config struct {
	Machine  Machine  `toml:"machine"`
	Quirks   Quirks   `toml:"quirks"`
	Keyboard Keyboard `toml:"keyboard"`
	Display  Display  `toml:"display"`
	Audio    Audio    `toml:"audio"`
}

func Default() Config {
	return Config{
		Machine: Machine{
			Speed:       console.DefaultSpeed,
			FontAddress: chip8.DefaultFontAddress,
		},
		Keyboard: Keyboard{
			Layout: chip8.DefaultKeyboardLayout.String(),
		},
		Display: Display{
			On:         "##",
			Off:        "  ",
			Foreground: "#FFFFFF",
			Background: "#000000",
			Scale:      15,
		},
		Audio: Audio{
			Frequency: console.DefaultTone.Frequency,
			Volume:    console.DefaultTone.Volume,
		},
	}
}

// Load reads the file at path over the defaults.
// A missing file is not an error, the defaults are returned.
func Load(path string) (Config, error) {
	c := Default()

	md, err := toml.DecodeFile(path, &c)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Config file not found, using defaults", slog.String("path", path))
		return Default(), nil
	}
	if err != nil {
		return c, fmt.Errorf("reading config %s: %w", path, err)
	}

	warnUndecoded(md)

	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}

	return c, nil
}

// Parse reads a TOML document over the defaults.
func Parse(doc string) (Config, error) {
	c := Default()

	md, err := toml.Decode(doc, &c)
	if err != nil {
		return c, fmt.Errorf("parsing config: %w", err)
	}

	warnUndecoded(md)

	return c, c.Validate()
}

func warnUndecoded(md toml.MetaData) {
	for _, key := range md.Undecoded() {
		slog.Warn("Unknown config key", slog.String("key", key.String()))
	}
}

func (c Config) Validate() error {
	if c.Machine.Speed < console.MinSpeed || c.Machine.Speed > console.MaxSpeed {
		return fmt.Errorf("%w: speed %d outside [%d, %d]", ErrInvalidConfig, c.Machine.Speed, console.MinSpeed, console.MaxSpeed)
	}

	if !chip8.ValidFontAddress(c.Machine.FontAddress) {
		return fmt.Errorf("%w: font at 0x%03X overlaps the program", ErrInvalidConfig, c.Machine.FontAddress)
	}

	if _, err := chip8.ParseKeyboardLayout(c.Keyboard.Layout); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.Display.On == c.Display.Off {
		return fmt.Errorf("%w: on and off characters are both %q", ErrInvalidConfig, c.Display.On)
	}
	if _, err := ParseColor(c.Display.Foreground); err != nil {
		return err
	}
	if _, err := ParseColor(c.Display.Background); err != nil {
		return err
	}
	if c.Display.Scale < 1 {
		return fmt.Errorf("%w: scale must be positive", ErrInvalidConfig)
	}

	if c.Audio.Frequency <= 0 {
		return fmt.Errorf("%w: tone frequency must be positive", ErrInvalidConfig)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("%w: volume %v outside [0, 1]", ErrInvalidConfig, c.Audio.Volume)
	}

	return nil
}

// ParseColor reads a #RRGGBB colour.
func ParseColor(s string) (color.RGBA, error) {
	c := color.RGBA{A: 0xFF}

	if len(s) != 7 || !strings.HasPrefix(s, "#") {
		return c, fmt.Errorf("%w: colour %q is not #RRGGBB", ErrInvalidConfig, s)
	}
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return c, fmt.Errorf("%w: colour %q is not #RRGGBB", ErrInvalidConfig, s)
	}

	return c, nil
}

func (q Quirks) Flags() chip8.Quirks {
	var flags chip8.Quirks
	flags = flags.With(chip8.QuirkShiftUsesVy, q.ShiftUsesVy)
	flags = flags.With(chip8.QuirkVfReset, q.VfReset)
	flags = flags.With(chip8.QuirkJumpUsesVx, q.JumpUsesVx)
	flags = flags.With(chip8.QuirkMemoryMovesIndex, q.MemoryMovesIndex)
	flags = flags.With(chip8.QuirkClipSprites, q.ClipSprites)
	return flags
}

// Layout returns the keyboard layout. It falls back to the default one
// when the configured layout is invalid.
func (c Config) Layout() chip8.KeyboardLayout {
	layout, err := chip8.ParseKeyboardLayout(c.Keyboard.Layout)
	if err != nil {
		return chip8.DefaultKeyboardLayout
	}
	return layout
}

func (c Config) Tone() console.Tone {
	return console.Tone{
		Frequency: c.Audio.Frequency,
		Volume:    c.Audio.Volume,
	}
}

// Colors returns the foreground and background colours, white on black
// when they are invalid.
func (c Config) Colors() (fg, bg color.RGBA) {
	fg, err := ParseColor(c.Display.Foreground)
	if err != nil {
		fg = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	}
	bg, err = ParseColor(c.Display.Background)
	if err != nil {
		bg = color.RGBA{A: 0xFF}
	}
	return fg, bg
}

func (c Config) MachineOptions() []chip8.MachineConfigCb {
	return []chip8.MachineConfigCb{
		func(config *chip8.MachineConfig) {
			config.FontAddress = c.Machine.FontAddress
			config.Quirks = c.Quirks.Flags()
		},
	}
}

func (c Config) ConsoleOptions() []console.ConfigCb {
	return []console.ConfigCb{
		func(config *console.Config) {
			config.SpeedInHz = c.Machine.Speed
		},
	}
}

// TerminalDisplay builds the terminal display with the configured characters.
func (c Config) TerminalDisplay() *console.TerminalDisplay {
	d := console.NewTerminalDisplay()
	d.OnChar = c.Display.On
	d.OffChar = c.Display.Off
	return d
}
