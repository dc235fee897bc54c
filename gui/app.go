package gui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/sqweek/dialog"

	"github.com/guslan/chip8"
	"github.com/guslan/chip8/console"
)

const (
	ToolbarGap       = 5
	ToolbarBtnWidth  = 80
	ToolbarBtnHeight = 40
	ToolbarHeight    = 50
	ToolbarBtnOffset = ToolbarBtnWidth + ToolbarGap

	DefaultPixelSize = 15
	ScreenPositionX  = 0
	ScreenPositionY  = ToolbarHeight + 1

	MessageBarGap   = 5
	MessageBarHeigh = 30
)

var MessageBarBgColor = rl.DarkGray

type MessageType byte

const (
	MessageInfo MessageType = iota
	MessageSuccess
	MessageWarning
	MessageError
)

// messageColors is indexed by MessageType.
var messageColors = [...]rl.Color{rl.SkyBlue, rl.Lime, rl.Gold, rl.Red}

type action byte

const (
	actionLoad action = iota
	actionStart
	actionStop
	actionStep
	actionReset
	numActions
)

func (a action) label() string {
	switch a {
	case actionLoad:
		return gui.IconText(gui.ICON_FILE_OPEN, "Load")
	case actionStart:
		return gui.IconText(gui.ICON_PLAYER_PLAY, "Start")
	case actionStop:
		return gui.IconText(gui.ICON_PLAYER_STOP, "Stop")
	case actionStep:
		return gui.IconText(gui.ICON_PLAYER_NEXT, "Step")
	case actionReset:
		return gui.IconText(gui.ICON_ROTATE, "Reset")
	}
	return ""
}

// toolbarSlot is the rectangle of the i-th toolbar item from the left.
func toolbarSlot(i int) rl.Rectangle {
	return rl.NewRectangle(float32(ToolbarGap+ToolbarBtnOffset*i), ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight)
}

type AppConfig struct {
	MachineOptions []chip8.MachineConfigCb
	ConsoleOptions []console.ConfigCb
	Buzzer         console.Buzzer
	KeyboardLayout chip8.KeyboardLayout
	// PixelSize is the side in screen pixels of a machine pixel
	PixelSize  int32
	Foreground rl.Color
	Background rl.Color
}

type AppConfigCb func(config *AppConfig)

type App struct {
	console *console.Console

	pixelSize              int32
	foreground, background rl.Color

	// Speed in Hz
	speed float32

	keyboardLookupMap map[int32]byte
	// keys down during the last UI frame, one bit per key
	keys uint16

	// Window width and height
	winW, winH int

	// toolbar buttons clicked during the last UI frame
	clicked [numActions]bool

	// written by the console loop, read by the UI loop
	mu                sync.Mutex
	screen            chip8.Framebuffer
	loadedProgramPath string
	lastMessage       string
	lastMessageColor  rl.Color
}

func NewApp(configs ...AppConfigCb) *App {
	config := &AppConfig{
		Buzzer:         console.NewDummyBuzzer(),
		KeyboardLayout: chip8.DefaultKeyboardLayout,
		PixelSize:      DefaultPixelSize,
		Foreground:     rl.Yellow,
		Background:     rl.Gold,
	}
	for _, cb := range configs {
		cb(config)
	}

	app := &App{
		pixelSize:         max(config.PixelSize, 1),
		foreground:        config.Foreground,
		background:        config.Background,
		keyboardLookupMap: keyboardLookupMap(config.KeyboardLayout),
	}

	consoleOptions := append([]console.ConfigCb{func(c *console.Config) {
		c.Display = app
		c.Buzzer = config.Buzzer
		c.StartPaused = true
		c.HaltOnError = false
	}}, config.ConsoleOptions...)

	app.console = console.NewConsole(chip8.NewMachine(config.MachineOptions...), consoleOptions...)
	app.console.AddErrorHook(app.onError)
	app.speed = float32(app.console.SpeedInHz())

	app.updateWindowSize()

	return app
}

func (app *App) Console() *console.Console {
	return app.console
}

// Run boots the console and runs the UI loop until the window is closed.
func (app *App) Run(autostart bool) error {
	if err := app.console.Boot(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting console loop on pause")
		if err := app.console.Loop(ctx); err != nil {
			app.showMessage(err.Error(), MessageError)
			slog.Error("Error running the console", slog.Any("error", err))
		}
	}()

	if autostart && app.hasProgramLoaded() {
		app.console.Start()
	}

	rl.InitWindow(int32(app.winW), int32(app.winH), "chip8")
	defer rl.CloseWindow()

	gui.LoadStyleDefault()
	rl.SetTargetFPS(console.FrameRate)
	for !rl.WindowShouldClose() {
		rl.BeginDrawing()

		rl.ClearBackground(rl.Black)

		app.handleFileLoad()
		app.handleActions()
		app.handleKeyPress()
		app.updateSpeed()

		app.drawMessageBar()
		app.drawScreen()
		app.drawToolbar()

		rl.EndDrawing()
	}

	return nil
}

func (app *App) Load(path string) {
	if err := app.console.LoadFile(path); err != nil {
		slog.Error("Error loading program", slog.String("path", path), slog.Any("error", err))
		app.showMessage(err.Error(), MessageError)
		return
	}

	app.mu.Lock()
	app.loadedProgramPath = path
	app.mu.Unlock()

	app.showMessage(fmt.Sprintf("Program '%s' loaded", filepath.Base(path)), MessageInfo)
}

func (app *App) onError(m *chip8.Machine) {
	app.showMessage(m.Err().Error(), MessageError)
}

func (app *App) updateWindowSize() {
	app.winW = chip8.ScreenWidth * int(app.pixelSize)
	app.winH = chip8.ScreenHeight*int(app.pixelSize) + ToolbarHeight + MessageBarHeigh
	slog.Info("Updating window size", slog.Int("width", app.winW), slog.Int("height", app.winH))
}

func (app *App) handleFileLoad() {
	if rl.IsFileDropped() {
		files := rl.LoadDroppedFiles()
		defer rl.UnloadDroppedFiles()

		slog.Info("Files were dropped", "files", strings.Join(files, ","))

		if len(files) > 0 {
			app.Load(files[0])
		}
	}

	if app.clicked[actionLoad] {
		path, err := dialog.File().Title("Load a ROM").Filter("CHIP-8 ROM", "ch8", "c8").Load()
		if errors.Is(err, dialog.ErrCancelled) {
			return
		}
		if err != nil {
			slog.Error("Error opening the file dialog", slog.Any("error", err))
			app.showMessage(err.Error(), MessageError)
			return
		}

		app.Load(path)
	}
}

func (app *App) hasProgramLoaded() bool {
	app.mu.Lock()
	defer app.mu.Unlock()

	return len(app.loadedProgramPath) > 0
}

func (app *App) handleActions() {
	switch {
	case app.clicked[actionStart] && !app.hasProgramLoaded():
		app.showMessage("There is no program loaded", MessageError)

	case app.clicked[actionStart]:
		app.console.Start()
		slog.Info("Console started")

	case app.clicked[actionStop]:
		app.console.Stop()
		slog.Info("Console stopped")

	case app.clicked[actionReset]:
		app.console.Reset()
		app.showMessage("Program reset", MessageInfo)
		slog.Info("Program reset to its loaded image")

	case app.clicked[actionStep]:
		if err := app.console.StepOnce(); err != nil {
			return
		}
		app.showMessage(app.console.Snapshot().Instruction, MessageInfo)
		slog.Debug("Running a single instruction")
	}
}

func (app *App) handleKeyPress() {
	var keys uint16
	for code, key := range app.keyboardLookupMap {
		if rl.IsKeyDown(code) {
			keys |= 1 << key
		}
	}

	changed := keys ^ app.keys
	for k := byte(0); k < chip8.NumKeys; k++ {
		if changed&(1<<k) == 0 {
			continue
		}
		if err := app.console.SetKey(k, keys&(1<<k) != 0); err != nil {
			slog.Warn("Key rejected", slog.Any("error", err))
		}
	}

	app.keys = keys
}

func (app *App) updateSpeed() {
	app.console.SetSpeedInHz(uint(app.speed))
}

func (app *App) drawToolbar() {
	rl.DrawRectangle(0, 0, int32(rl.GetScreenWidth()), ToolbarHeight, rl.Gray)

	for a := action(0); a < numActions; a++ {
		app.clicked[a] = gui.Button(toolbarSlot(int(a)), a.label())
	}

	status := "Stopped"
	if app.console.IsRunning() {
		status = "Running"
	}
	gui.Label(toolbarSlot(int(numActions)), status)

	right := float32(app.winW) - ToolbarGap - 150
	app.speed = gui.Slider(
		rl.NewRectangle(right, ToolbarGap, 100, 20),
		fmt.Sprintf("%d Hz", console.MinSpeed), fmt.Sprintf("%d Hz", console.MaxSpeed),
		app.speed,
		float32(console.MinSpeed),
		float32(console.MaxSpeed),
	)
	gui.Label(rl.NewRectangle(right, 26, 50, 20), fmt.Sprintf("%.0f Hz", app.speed))
	if gui.Button(rl.NewRectangle(right+50, 26, 50, 20), gui.IconText(gui.ICON_ROTATE, "")) {
		app.speed = float32(console.DefaultSpeed)
	}
}

func (app *App) showMessage(msg string, mType MessageType) {
	app.mu.Lock()
	defer app.mu.Unlock()

	app.lastMessage = msg
	app.lastMessageColor = messageColors[mType]
}

func (app *App) drawMessageBar() {
	app.mu.Lock()
	msg, color := app.lastMessage, app.lastMessageColor
	app.mu.Unlock()

	top := int32(app.winH) - MessageBarHeigh
	rl.DrawRectangle(0, top, int32(app.winW), MessageBarHeigh, MessageBarBgColor)
	rl.DrawText(msg, MessageBarGap, top+MessageBarGap, 16, color)
}
