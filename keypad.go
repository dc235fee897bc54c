package chip8

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"
)

// NumKeys is the size of the hexadecimal keypad.
const NumKeys = 16

// Keypad holds the pressed state of keys 0x0 to 0xF.
type Keypad [NumKeys]bool

// IsPressed reports whether key k is down. Keys above 0xF are never pressed.
func (kp Keypad) IsPressed(k byte) bool {
	if k >= NumKeys {
		return false
	}
	return kp[k]
}

// FirstPressed returns the lowest key that is down.
func (kp Keypad) FirstPressed() (byte, bool) {
	for k, pressed := range kp {
		if pressed {
			return byte(k), true
		}
	}
	return 0, false
}

// Mask packs the keypad into a bit set, bit k for key k.
func (kp Keypad) Mask() uint16 {
	var mask uint16
	for k, pressed := range kp {
		if pressed {
			mask |= 1 << k
		}
	}
	return mask
}

// KeyboardLayout maps each keypad key (by index) to a key on a modern keyboard.
type KeyboardLayout [NumKeys]rune

// DefaultKeyboardLayout lays the keypad out on the left side of a QWERTY keyboard:
//
//	1 2 3 C      1 2 3 4
//	4 5 6 D  ->  Q W E R
//	7 8 9 E      A S D F
//	A 0 B F      Z X C V
var DefaultKeyboardLayout = KeyboardLayout{
	'x', '1', '2', '3',
	'q', 'w', 'e', 'a',
	's', 'd', 'z', 'c',
	'4', 'r', 'f', 'v',
}

var ErrInvalidKeyboardLayout = errors.New("invalid keyboard layout")

// ParseKeyboardLayout reads a layout written as 16 distinct characters,
// the first one being the key for 0x0 and the last one the key for 0xF.
// Letters are case insensitive.
func ParseKeyboardLayout(s string) (KeyboardLayout, error) {
	var layout KeyboardLayout

	if n := utf8.RuneCountInString(s); n != NumKeys {
		return layout, fmt.Errorf("%w: expected %d keys, got %d", ErrInvalidKeyboardLayout, NumKeys, n)
	}

	seen := make(map[rune]bool, NumKeys)
	k := 0
	for _, r := range s {
		r = unicode.ToLower(r)
		if seen[r] {
			return layout, fmt.Errorf("%w: key %q used twice", ErrInvalidKeyboardLayout, r)
		}
		seen[r] = true
		layout[k] = r
		k++
	}

	return layout, nil
}

// LookupMap inverts the layout: keyboard rune to keypad key.
func LookupMap(layout KeyboardLayout) map[rune]byte {
	m := make(map[rune]byte, NumKeys)
	for k, r := range layout {
		m[r] = byte(k)
	}
	return m
}

func (layout KeyboardLayout) String() string {
	return string(layout[:])
}
