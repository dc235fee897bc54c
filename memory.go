package chip8

import (
	"fmt"
	"strings"
)

const (
	// StartOfProgram is where ROMs are loaded and execution begins.
	StartOfProgram = 0x200
	// MemorySize is the full 4KB address space.
	MemorySize = 4096
	// MaxRomSize is the largest ROM that fits between StartOfProgram and the end of memory.
	MaxRomSize = MemorySize - StartOfProgram

	// DefaultFontAddress is the conventional location of the built-in hex font.
	DefaultFontAddress = 0x050
	// FontGlyphSize is the number of bytes (rows) of each glyph.
	FontGlyphSize = 5
	// FontSize is the total size of the 16 glyph font.
	FontSize = 16 * FontGlyphSize
)

// Memory is the 4KB address space of the machine.
type Memory [MemorySize]byte

var font = [FontSize]byte{
	// 0
	0xF0, 0x90, 0x90, 0x90, 0xF0,
	// 1
	0x20, 0x60, 0x20, 0x20, 0x70,
	// 2
	0xF0, 0x10, 0xF0, 0x80, 0xF0,
	// 3
	0xF0, 0x10, 0xF0, 0x10, 0xF0,
	// 4
	0x90, 0x90, 0xF0, 0x10, 0x10,
	// 5
	0xF0, 0x80, 0xF0, 0x10, 0xF0,
	// 6
	0xF0, 0x80, 0xF0, 0x90, 0xF0,
	// 7
	0xF0, 0x10, 0x20, 0x40, 0x40,
	// 8
	0xF0, 0x90, 0xF0, 0x90, 0xF0,
	// 9
	0xF0, 0x90, 0xF0, 0x10, 0xF0,
	// A
	0xF0, 0x90, 0xF0, 0x90, 0x90,
	// B
	0xE0, 0x90, 0xE0, 0x90, 0xE0,
	// C
	0xF0, 0x80, 0x80, 0x80, 0xF0,
	// D
	0xE0, 0x90, 0x90, 0x90, 0xE0,
	// E
	0xF0, 0x80, 0xF0, 0x80, 0xF0,
	// F
	0xF0, 0x80, 0xF0, 0x80, 0x80,
}

// Font returns a copy of the built-in hex digit glyphs.
func Font() [FontSize]byte {
	return font
}

// ValidFontAddress reports whether the whole font fits below StartOfProgram when placed at addr.
func ValidFontAddress(addr uint16) bool {
	return int(addr)+FontSize <= StartOfProgram
}

func (mem *Memory) loadFont(addr uint16) {
	copy(mem[addr:], font[:])
}

// loadProgram clears the program area and copies program into it.
// The caller checks the size beforehand.
func (mem *Memory) loadProgram(program []byte) {
	clear(mem[StartOfProgram:])
	copy(mem[StartOfProgram:], program)
}

func (mem *Memory) read(addr uint16) (byte, bool) {
	if int(addr) >= MemorySize {
		return 0, false
	}
	return mem[addr], true
}

// span returns mem[addr:addr+n] when the whole range is addressable.
func (mem *Memory) span(addr uint16, n int) ([]byte, bool) {
	end := int(addr) + n
	if end > MemorySize {
		return nil, false
	}
	return mem[addr:end], true
}

func (mem Memory) String() string {
	sb := strings.Builder{}

	sb.WriteString("[ ")
	for _, b := range mem[:StartOfProgram] {
		sb.WriteString(fmt.Sprintf("%X ", b))
	}
	sb.WriteString("]\n")
	sb.WriteString("[ ")
	for _, b := range mem[StartOfProgram:] {
		sb.WriteString(fmt.Sprintf("%X ", b))
	}
	sb.WriteString("]")

	return sb.String()
}
