package gui

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/guslan/chip8"
)

// Boot implements console.Display.
func (app *App) Boot() error {
	return nil
}

// Render implements console.Display.
func (app *App) Render(fb chip8.Framebuffer) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	app.screen = fb

	return nil
}

func (app *App) drawScreen() {
	app.mu.Lock()
	rows := app.screen.Rows()
	app.mu.Unlock()

	for y, row := range rows {
		for x := 0; x < chip8.ScreenWidth; x++ {
			color := app.background
			if row&(1<<(chip8.ScreenWidth-1-x)) != 0 {
				color = app.foreground
			}

			rl.DrawRectangle(
				ScreenPositionX+app.pixelSize*int32(x),
				ScreenPositionY+app.pixelSize*int32(y),
				app.pixelSize,
				app.pixelSize,
				color)
		}
	}
}
