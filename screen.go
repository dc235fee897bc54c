package chip8

import "strings"

const (
	ScreenWidth  = 64
	ScreenHeight = 32

	bytesPerRow = ScreenWidth / 8
)

// Framebuffer is the 64x32 monochrome display, one bit per pixel,
// row-major, most significant bit first. Pixel (0, 0) is bit 0x80 of byte 0.
type Framebuffer [ScreenWidth * ScreenHeight / 8]byte

// Pixel reports whether the pixel at (x, y) is lit. Coordinates wrap.
func (fb Framebuffer) Pixel(x, y int) bool {
	x = mod(x, ScreenWidth)
	y = mod(y, ScreenHeight)

	return fb[y*bytesPerRow+x/8]&(0x80>>(x%8)) != 0
}

// IsBlank reports whether every pixel is off.
func (fb Framebuffer) IsBlank() bool {
	return fb == Framebuffer{}
}

// Rows returns each screen row as a 64-bit word, pixel 0 in the most significant bit.
func (fb Framebuffer) Rows() [ScreenHeight]uint64 {
	var rows [ScreenHeight]uint64
	for y := range rows {
		for b := 0; b < bytesPerRow; b++ {
			rows[y] = rows[y]<<8 | uint64(fb[y*bytesPerRow+b])
		}
	}
	return rows
}

// Unpack expands the framebuffer into one byte (0 or 1) per pixel.
func (fb Framebuffer) Unpack() []byte {
	pixels := make([]byte, ScreenWidth*ScreenHeight)

	for i, t := 0, 0; i < len(fb); i, t = i+1, t+8 {
		pixels[t+0] = (fb[i] >> 7) & 0b1
		pixels[t+1] = (fb[i] >> 6) & 0b1
		pixels[t+2] = (fb[i] >> 5) & 0b1
		pixels[t+3] = (fb[i] >> 4) & 0b1
		pixels[t+4] = (fb[i] >> 3) & 0b1
		pixels[t+5] = (fb[i] >> 2) & 0b1
		pixels[t+6] = (fb[i] >> 1) & 0b1
		pixels[t+7] = (fb[i] >> 0) & 0b1
	}

	return pixels
}

// String draws the framebuffer with '#' for lit pixels and '.' otherwise.
func (fb Framebuffer) String() string {
	sb := strings.Builder{}
	sb.Grow((ScreenWidth + 1) * ScreenHeight)

	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < ScreenWidth; x++ {
			if fb.Pixel(x, y) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}

// drawRow XORs one sprite row at (x, y), both already inside the screen.
// The part of the row past the right edge wraps to column 0 of the same
// row unless clip is set. Returns whether a lit pixel was turned off.
func (fb *Framebuffer) drawRow(x, y, sprite byte, clip bool) bool {
	row := int(y) * bytesPerRow
	col := int(x) / 8
	offset := x % 8

	// We are drawing to an aligned position
	if offset == 0 {
		t := row + col
		collision := fb[t]&sprite != 0
		fb[t] ^= sprite

		return collision
	}

	// Not an aligned position, the row straddles two bytes.
	left := sprite >> offset
	right := sprite << (8 - offset)

	t := row + col
	collision := fb[t]&left != 0
	fb[t] ^= left

	next := col + 1
	if next == bytesPerRow {
		if clip {
			return collision
		}
		next = 0
	}

	t = row + next
	collision = collision || fb[t]&right != 0
	fb[t] ^= right

	return collision
}

func mod(a, m int) int {
	a %= m
	if a < 0 {
		a += m
	}
	return a
}
