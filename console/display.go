package console

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/guslan/chip8"
)

// Display shows the frames of the console.
type Display interface {
	// Boot prepares the device, it is called once before the first frame
	Boot() error
	// Render draws a new frame
	Render(chip8.Framebuffer) error
}

// DummyDisplay discards every frame.
type DummyDisplay struct {
}

func NewDummyDisplay() *DummyDisplay {
	return &DummyDisplay{}
}

func (d DummyDisplay) Boot() error {
	return nil
}

func (d DummyDisplay) Render(chip8.Framebuffer) error {
	return nil
}

// InMemoryDisplay keeps the last rendered frame
type InMemoryDisplay struct {
	mu      sync.Mutex
	frame   chip8.Framebuffer
	renders int
}

func NewInMemoryDisplay() *InMemoryDisplay {
	return &InMemoryDisplay{}
}

func (d *InMemoryDisplay) Boot() error {
	return nil
}

func (d *InMemoryDisplay) Render(fb chip8.Framebuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.frame = fb
	d.renders++

	return nil
}

// Frame returns the last rendered frame and the number of renders so far.
func (d *InMemoryDisplay) Frame() (chip8.Framebuffer, int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.frame, d.renders
}

const (
	cursorHome  = "\x1b[1H"
	clearScreen = "\x1b[0J"
)

// TerminalDisplay draws the screen with ANSI escape codes. Each pixel is
// drawn as OnChar or OffChar and every row ends with a '|' border.
type TerminalDisplay struct {
	out             io.Writer
	OnChar, OffChar string
}

func NewTerminalDisplay() *TerminalDisplay {
	return NewTerminalDisplayWithOutput(os.Stdout)
}

func NewTerminalDisplayWithOutput(out io.Writer) *TerminalDisplay {
	return &TerminalDisplay{
		out:     out,
		OnChar:  "##",
		OffChar: "  ",
	}
}

func (disp *TerminalDisplay) Boot() error {
	_, err := io.WriteString(disp.out, cursorHome+clearScreen)
	return err
}

// Render redraws the whole screen from the top left corner.
func (disp *TerminalDisplay) Render(fb chip8.Framebuffer) error {
	var sb strings.Builder
	sb.Grow(len(cursorHome) + chip8.ScreenHeight*(chip8.ScreenWidth*max(len(disp.OnChar), len(disp.OffChar))+2))
	sb.WriteString(cursorHome)

	for _, row := range fb.Rows() {
		for mask := uint64(1) << (chip8.ScreenWidth - 1); mask != 0; mask >>= 1 {
			if row&mask != 0 {
				sb.WriteString(disp.OnChar)
			} else {
				sb.WriteString(disp.OffChar)
			}
		}
		sb.WriteString("|\n")
	}

	_, err := io.WriteString(disp.out, sb.String())
	return err
}
