// Package sdl runs a console in an SDL2 window.
//
// Escape quits, Space pauses, Backspace resets and F6 steps a paused
// program. The other keys are mapped to the keypad with the layout.
package sdl

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"
	"unicode"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/guslan/chip8"
	"github.com/guslan/chip8/console"
)

const (
	windowTitle      = "chip8"
	DefaultPixelSize = 10
)

type AppConfig struct {
	MachineOptions []chip8.MachineConfigCb
	ConsoleOptions []console.ConfigCb
	KeyboardLayout chip8.KeyboardLayout
	PixelSize      int32
	Foreground     sdl.Color
	Background     sdl.Color
	Tone           console.Tone
	// Mute replaces the audio device with a silent buzzer
	Mute bool
}

type AppConfigCb func(config *AppConfig)

type App struct {
	console *console.Console
	buzzer  *QueueBuzzer
	keys    map[sdl.Keycode]byte

	pixelSize              int32
	foreground, background sdl.Color

	window   *sdl.Window
	renderer *sdl.Renderer
	screen   chip8.Framebuffer
	dirty    bool
}

func NewApp(configs ...AppConfigCb) *App {
	config := &AppConfig{
		KeyboardLayout: chip8.DefaultKeyboardLayout,
		PixelSize:      DefaultPixelSize,
		Foreground:     sdl.Color{R: 17, G: 29, B: 43, A: 255},
		Background:     sdl.Color{R: 143, G: 145, B: 133, A: 255},
		Tone:           console.DefaultTone,
	}
	for _, cb := range configs {
		cb(config)
	}

	app := &App{
		keys:       keyMap(config.KeyboardLayout),
		pixelSize:  max(config.PixelSize, 1),
		foreground: config.Foreground,
		background: config.Background,
	}

	var buzzer console.Buzzer = console.NewDummyBuzzer()
	if !config.Mute {
		app.buzzer = NewQueueBuzzer(config.Tone)
		buzzer = app.buzzer
	}

	consoleOptions := append([]console.ConfigCb{func(c *console.Config) {
		c.Display = app
		c.Buzzer = buzzer
	}}, config.ConsoleOptions...)

	app.console = console.NewConsole(chip8.NewMachine(config.MachineOptions...), consoleOptions...)

	return app
}

func (app *App) Console() *console.Console {
	return app.console
}

// keyMap maps the SDL key codes to the keypad. SDL numbers the printable
// keys by their lower case character.
func keyMap(layout chip8.KeyboardLayout) map[sdl.Keycode]byte {
	m := make(map[sdl.Keycode]byte, chip8.NumKeys)
	for r, k := range chip8.LookupMap(layout) {
		m[sdl.Keycode(unicode.ToLower(r))] = k
	}
	return m
}

// Run opens the window and runs the console on the calling goroutine
// until the window is closed or ctx is done.
func (app *App) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO); err != nil {
		return fmt.Errorf("sdl: %w", err)
	}
	defer sdl.Quit()

	var err error
	app.window, err = sdl.CreateWindow(windowTitle,
		int32(sdl.WINDOWPOS_CENTERED), int32(sdl.WINDOWPOS_CENTERED),
		chip8.ScreenWidth*app.pixelSize, chip8.ScreenHeight*app.pixelSize,
		uint32(sdl.WINDOW_SHOWN))
	if err != nil {
		return fmt.Errorf("sdl: %w", err)
	}
	defer app.window.Destroy()

	app.renderer, err = sdl.CreateRenderer(app.window, -1, uint32(sdl.RENDERER_ACCELERATED))
	if err != nil {
		return fmt.Errorf("sdl: %w", err)
	}
	defer app.renderer.Destroy()

	if err := app.console.Boot(); err != nil {
		return err
	}
	if app.buzzer != nil {
		defer app.buzzer.Close()
	}

	slog.Info("Window open", slog.Int("pixelSize", int(app.pixelSize)))

	ticker := time.NewTicker(time.Second / console.FrameRate)
	defer ticker.Stop()

	for app.processEvents() {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := app.console.RunFrame(); err != nil {
			slog.Error("Machine halted", slog.Any("error", err))
			app.window.SetTitle(fmt.Sprintf("%s - %v", windowTitle, err))
		}

		if app.buzzer != nil {
			if err := app.buzzer.Update(); err != nil {
				slog.Error("Error queueing audio", slog.Any("error", err))
			}
		}

		if err := app.draw(); err != nil {
			return err
		}
	}

	return nil
}

// processEvents reports false once the window must close.
func (app *App) processEvents() bool {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch event.GetType() {
		case sdl.QUIT:
			return false

		case sdl.KEYDOWN:
			ev := event.(*sdl.KeyboardEvent)
			if k, ok := app.keys[ev.Keysym.Sym]; ok {
				app.setKey(k, true)
				continue
			}
			if ev.Repeat != 0 {
				continue
			}

			switch ev.Keysym.Sym {
			case sdl.K_ESCAPE:
				return false
			case sdl.K_SPACE:
				app.togglePause()
			case sdl.K_BACKSPACE:
				app.console.Reset()
				app.window.SetTitle(windowTitle)
				slog.Info("Resetting the program to the beginning")
			case sdl.K_F6:
				if !app.console.IsRunning() {
					if err := app.console.StepOnce(); err == nil {
						slog.Info("Step", slog.String("instruction", app.console.Snapshot().Instruction))
					}
				}
			}

		case sdl.KEYUP:
			ev := event.(*sdl.KeyboardEvent)
			if k, ok := app.keys[ev.Keysym.Sym]; ok {
				app.setKey(k, false)
			}
		}
	}

	return true
}

func (app *App) setKey(k byte, pressed bool) {
	if err := app.console.SetKey(k, pressed); err != nil {
		slog.Warn("Key rejected", slog.Any("error", err))
	}
}

func (app *App) togglePause() {
	if app.console.IsRunning() {
		app.console.Stop()
		app.window.SetTitle(windowTitle + " - paused")
		slog.Info("Stopping the console")
		return
	}

	app.console.Start()
	app.window.SetTitle(windowTitle)
	slog.Info("Starting the console")
}

// Boot implements console.Display.
func (app *App) Boot() error {
	return nil
}

// Render implements console.Display. The frame is drawn by the main loop.
func (app *App) Render(fb chip8.Framebuffer) error {
	app.screen = fb
	app.dirty = true

	return nil
}

func (app *App) draw() error {
	if !app.dirty {
		return nil
	}
	app.dirty = false

	bg, fg := app.background, app.foreground
	if err := app.renderer.SetDrawColor(bg.R, bg.G, bg.B, bg.A); err != nil {
		return err
	}
	if err := app.renderer.Clear(); err != nil {
		return err
	}
	if err := app.renderer.SetDrawColor(fg.R, fg.G, fg.B, fg.A); err != nil {
		return err
	}

	pixels := make([]sdl.Rect, 0, chip8.ScreenWidth*chip8.ScreenHeight)
	for y, row := range app.screen.Rows() {
		for x := int32(0); x < chip8.ScreenWidth; x++ {
			if row&(1<<(chip8.ScreenWidth-1-x)) == 0 {
				continue
			}
			pixels = append(pixels, sdl.Rect{
				X: x * app.pixelSize,
				Y: int32(y) * app.pixelSize,
				W: app.pixelSize,
				H: app.pixelSize,
			})
		}
	}
	if len(pixels) > 0 {
		if err := app.renderer.FillRects(pixels); err != nil {
			return err
		}
	}

	app.renderer.Present()

	return nil
}
