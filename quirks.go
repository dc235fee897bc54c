package chip8

import "strings"

// Quirks selects between historical variants of a few instructions.
// The zero value gives the behaviour most modern ROMs expect.
type Quirks uint8

const (
	// QuirkShiftUsesVy makes 8xy6/8xyE shift Vy into Vx (COSMAC VIP).
	QuirkShiftUsesVy Quirks = 1 << iota
	// QuirkVfReset clears VF after 8xy1, 8xy2 and 8xy3.
	QuirkVfReset
	// QuirkJumpUsesVx makes Bxnn jump to xnn + Vx (CHIP-48).
	QuirkJumpUsesVx
	// QuirkMemoryMovesIndex leaves I pointing past the last register after Fx55/Fx65.
	QuirkMemoryMovesIndex
	// QuirkClipSprites clips sprites at the screen edges instead of wrapping them.
	QuirkClipSprites
)

var quirkNames = []struct {
	q    Quirks
	name string
}{
	{QuirkShiftUsesVy, "shift_uses_vy"},
	{QuirkVfReset, "vf_reset"},
	{QuirkJumpUsesVx, "jump_uses_vx"},
	{QuirkMemoryMovesIndex, "memory_moves_index"},
	{QuirkClipSprites, "clip_sprites"},
}

// Has reports whether every flag in f is set.
func (q Quirks) Has(f Quirks) bool {
	return q&f == f
}

// With returns q with f set or cleared.
func (q Quirks) With(f Quirks, on bool) Quirks {
	if on {
		return q | f
	}
	return q &^ f
}

func (q Quirks) String() string {
	if q == 0 {
		return "none"
	}

	names := make([]string, 0, len(quirkNames))
	for _, qn := range quirkNames {
		if q.Has(qn.q) {
			names = append(names, qn.name)
		}
	}

	return strings.Join(names, ",")
}
