package gui

import (
	"unicode"

	"github.com/guslan/chip8"
)

// keyCode returns the raylib key of a layout character. Raylib numbers
// the printable keys by their upper case ASCII code.
func keyCode(r rune) (int32, bool) {
	r = unicode.ToUpper(r)
	if r < ' ' || r > '`' {
		return 0, false
	}
	return int32(r), true
}

func keyboardLookupMap(layout chip8.KeyboardLayout) map[int32]byte {
	m := make(map[int32]byte, chip8.NumKeys)
	for r, k := range chip8.LookupMap(layout) {
		code, ok := keyCode(r)
		if !ok {
			continue
		}
		m[code] = k
	}
	return m
}
