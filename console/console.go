// Package console drives a chip8.Machine in real time: it runs the
// instructions of each 1/60 s frame, ticks the timers, renders the screen
// and sounds the buzzer.
package console

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/guslan/chip8"
)

var ErrConsoleIsNotBooted = errors.New("the console has not been booted properly")

const (
	DefaultSpeed uint = 500
	MaxSpeed     uint = 2000
	MinSpeed     uint = 5

	// FrameRate is the number of frames per second, one timer tick each.
	FrameRate = chip8.TimerHz
)

type Config struct {
	// SpeedInHz is the number of instructions executed per second.
	SpeedInHz uint
	Display   Display
	Buzzer    Buzzer
	// StartPaused makes the console wait for Start before running instructions.
	StartPaused bool
	// HaltOnError makes Loop return the first fatal error. Otherwise the
	// console pauses itself and keeps looping.
	HaltOnError bool
}

type ConfigCb func(config *Config)

// Console owns a machine and the devices attached to it.
//
// All the methods are safe for concurrent use. The machine is only touched
// while holding the console lock, so every read made through the console
// sees the state between two instructions.
type Console struct {
	mu sync.Mutex

	machine *chip8.Machine
	display Display
	buzzer  Buzzer

	speedInHz uint
	// instructions owed to the next frame, in 1/FrameRate units
	carry       uint
	haltOnError bool

	isBooted  bool
	isPaused  bool
	isBuzzing bool
	lastDraw  uint64
	frames    uint64

	// Hooks that run before every instruction
	beforeStepHooks []Hook
	// Hooks that run after every instruction
	afterStepHooks []Hook
	// Hooks that run after every frame
	afterFrameHooks []Hook
	// Hooks that run after a fatal error
	errorHooks []Hook
}

func NewConsole(m *chip8.Machine, configs ...ConfigCb) *Console {
	config := &Config{
		SpeedInHz:   DefaultSpeed,
		Display:     NewDummyDisplay(),
		Buzzer:      NewDummyBuzzer(),
		StartPaused: false,
		HaltOnError: true,
	}
	for _, cb := range configs {
		cb(config)
	}

	return &Console{
		machine:     m,
		display:     config.Display,
		buzzer:      config.Buzzer,
		speedInHz:   clampSpeed(config.SpeedInHz),
		haltOnError: config.HaltOnError,
		isPaused:    config.StartPaused,
	}
}

func clampSpeed(hz uint) uint {
	return min(max(hz, MinSpeed), MaxSpeed)
}

// Boot initializes the devices.
// If the console was already booted, this method is a noop
func (c *Console) Boot() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isBooted {
		return nil
	}

	if err := c.display.Boot(); err != nil {
		return err
	}

	if err := c.buzzer.Boot(); err != nil {
		return err
	}

	c.isBooted = true

	return nil
}

// Loop runs one frame every 1/60 s until ctx is done.
func (c *Console) Loop(ctx context.Context) error {
	if !c.IsBooted() {
		return ErrConsoleIsNotBooted
	}

	ticker := time.NewTicker(time.Second / FrameRate)
	defer ticker.Stop()
	defer c.silence()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if err := c.RunFrame(); err != nil {
				if c.haltOnError {
					return err
				}
				slog.Error("Machine halted", slog.Any("error", err))
			}
		}
	}
}

// RunFrame runs the instructions of one frame, ticks the timers once,
// updates the buzzer and renders the screen if it changed.
// A paused console only renders.
func (c *Console) RunFrame() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isBooted {
		return ErrConsoleIsNotBooted
	}

	if !c.isPaused {
		total := c.speedInHz + c.carry
		steps := total / FrameRate
		c.carry = total % FrameRate

		for i := uint(0); i < steps; i++ {
			if err := c.step(); err != nil {
				return c.fail(err)
			}
		}

		c.machine.TickTimers()
	}

	c.updateBuzzer()
	if err := c.render(); err != nil {
		return err
	}

	c.frames++
	c.runHooks(c.afterFrameHooks)

	return nil
}

// StepOnce runs a single instruction bypassing the pause state.
// Timers are not ticked.
func (c *Console) StepOnce() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isBooted {
		return ErrConsoleIsNotBooted
	}

	if err := c.step(); err != nil {
		return c.fail(err)
	}

	return c.render()
}

func (c *Console) step() error {
	c.runHooks(c.beforeStepHooks)
	if err := c.machine.Step(); err != nil {
		return err
	}
	c.runHooks(c.afterStepHooks)

	return nil
}

func (c *Console) fail(err error) error {
	c.runHooks(c.errorHooks)
	c.isPaused = true
	c.updateBuzzer()
	if rerr := c.render(); rerr != nil {
		slog.Error("Error rendering", slog.Any("error", rerr))
	}

	return err
}

func (c *Console) render() error {
	if d := c.machine.DrawCount(); d != c.lastDraw {
		c.lastDraw = d
		return c.display.Render(c.machine.Framebuffer())
	}

	return nil
}

func (c *Console) updateBuzzer() {
	active := !c.isPaused && c.machine.IsSoundActive()
	if active == c.isBuzzing {
		return
	}

	c.isBuzzing = active
	if active {
		c.buzzer.Play()
	} else {
		c.buzzer.Stop()
	}
}

func (c *Console) silence() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isBuzzing {
		c.isBuzzing = false
		c.buzzer.Stop()
	}
}

// Load replaces the program of the machine. The pause state is kept.
func (c *Console) Load(program []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.machine.Load(program); err != nil {
		return err
	}
	c.carry = 0

	slog.Info("Program loaded", slog.Int("size", len(program)))

	return nil
}

// LoadFile reads a ROM from disk and loads it.
func (c *Console) LoadFile(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := LoadFile(c.machine, path); err != nil {
		return err
	}
	c.carry = 0

	slog.Info("Program loaded", slog.String("path", path))

	return nil
}

// Reset restarts the loaded program.
func (c *Console) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.machine.Reset()
	c.carry = 0
	c.updateBuzzer()
}

func (c *Console) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.isPaused = false
}

func (c *Console) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.isPaused = true
	c.updateBuzzer()
}

func (c *Console) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.isPaused
}

func (c *Console) IsBooted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.isBooted
}

// SetKey forwards a key event to the machine.
func (c *Console) SetKey(k byte, pressed bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.machine.SetKey(k, pressed)
}

func (c *Console) SpeedInHz() uint {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.speedInHz
}

// SetSpeedInHz sets the instruction rate, clamped to [MinSpeed, MaxSpeed].
func (c *Console) SetSpeedInHz(inHz uint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.speedInHz = clampSpeed(inHz)
}

func (c *Console) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.frames
}

// WithMachine runs fn while holding the console lock.
// fn must not call back into the console.
func (c *Console) WithMachine(fn func(m *chip8.Machine)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fn(c.machine)
}

// Snapshot is a consistent copy of the machine and console state.
type Snapshot struct {
	State       chip8.State       `json:"state"`
	Framebuffer chip8.Framebuffer `json:"-"`
	Keypad      uint16            `json:"keypad"`
	Running     bool              `json:"running"`
	SpeedInHz   uint              `json:"speed"`
	Frames      uint64            `json:"frames"`
	Instruction string            `json:"instruction"`
	Error       string            `json:"error,omitempty"`
}

func (c *Console) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return snapshotOf(c.machine, !c.isPaused, c.speedInHz, c.frames)
}

func snapshotOf(m *chip8.Machine, running bool, speed uint, frames uint64) Snapshot {
	s := Snapshot{
		State:       m.State(),
		Framebuffer: m.Framebuffer(),
		Keypad:      m.Keypad().Mask(),
		Running:     running,
		SpeedInHz:   speed,
		Frames:      frames,
		Instruction: m.Disassemble(m.Pc()),
	}
	if err := m.Err(); err != nil {
		s.Error = err.Error()
	}

	return s
}
