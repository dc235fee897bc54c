package chip8_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guslan/chip8"
)

// runProgram loads program into m and executes n instructions, failing the test on any error.
func runProgram(t *testing.T, m *chip8.Machine, program []byte, n int) {
	t.Helper()

	require.NoError(t, m.Load(program))
	for i := 0; i < n; i++ {
		require.NoError(t, m.Step(), "step %d", i)
	}
}

func assertVxEq(t *testing.T, msg string, m *chip8.Machine, x, kk byte) {
	t.Helper()
	assert.Equalf(t, kk, m.V(x), "%s: V%X", msg, x)
}

func TestNewMachine(t *testing.T) {
	m := chip8.NewMachine()

	assert.Equal(t, uint16(chip8.StartOfProgram), m.Pc())
	assert.Equal(t, uint16(chip8.DefaultFontAddress), m.FontAddress())
	assert.True(t, m.Framebuffer().IsBlank())

	font := chip8.Font()
	mem := m.Memory()
	assert.Equal(t, font[:], mem[chip8.DefaultFontAddress:chip8.DefaultFontAddress+chip8.FontSize])
	assert.Equal(t, byte(0), mem[0])
	assert.Equal(t, byte(0), mem[chip8.StartOfProgram])
}

func TestNewMachine_InvalidFontAddressFallsBack(t *testing.T) {
	m := chip8.NewMachine(func(c *chip8.MachineConfig) {
		c.FontAddress = 0x1F0
	})

	assert.Equal(t, uint16(chip8.DefaultFontAddress), m.FontAddress())
}

// TestProgramLoading loads a program that jumps to the last address and runs off the end of memory
func TestProgramLoading(t *testing.T) {
	m := chip8.NewMachine()

	program := []byte{
		// move to the last address
		0x1F, 0xFE,
	}
	// the zeroed word at 0xFFE is a SYS call, ignored
	runProgram(t, m, program, 2)
	assert.Equal(t, uint16(0x1000), m.Pc())

	err := m.Step()
	require.ErrorIs(t, err, chip8.ErrAddressOutOfRange)
	assert.Equal(t, uint16(0x1000), m.Pc())
}

func TestLoad_MaxRomSize(t *testing.T) {
	m := chip8.NewMachine()

	rom := bytes.Repeat([]byte{0xAB}, chip8.MaxRomSize)
	require.NoError(t, m.Load(rom))
	assert.Equal(t, byte(0xAB), m.Peek(0xFFF))
}

func TestLoad_RomTooLargeKeepsState(t *testing.T) {
	m := chip8.NewMachine()

	program := []byte{
		0x6A, 0x02,
		0x7A, 0x03,
		0xA3, 0x00,
		0x12, 0x06,
	}
	runProgram(t, m, program, 3)

	before := m.State()
	mem := m.Memory()

	err := m.Load(make([]byte, chip8.MaxRomSize+1))
	require.ErrorIs(t, err, chip8.ErrRomTooLarge)

	var tooLarge chip8.RomTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, chip8.MaxRomSize+1, tooLarge.Size)
	assert.Equal(t, chip8.MaxRomSize, tooLarge.Max)

	assert.Equal(t, before, m.State())
	assert.Equal(t, mem, m.Memory())

	// the old program keeps running
	require.NoError(t, m.Step())
	assert.Equal(t, uint16(0x206), m.Pc())
}

func TestLoad_ClearsState(t *testing.T) {
	m := chip8.NewMachine()

	runProgram(t, m, []byte{
		0x60, 0x09,
		0xF0, 0x15,
		0x22, 0x08,
		0x00, 0x00,
		0x00, 0xE0,
	}, 3)
	require.NoError(t, m.SetKey(4, true))

	require.NoError(t, m.Load([]byte{0x12, 0x00}))

	state := m.State()
	assert.Equal(t, uint16(chip8.StartOfProgram), state.Pc)
	assert.Equal(t, [chip8.NumRegisters]byte{}, state.V)
	assert.Equal(t, byte(0), state.Sp)
	assert.Equal(t, byte(0), state.Dt)
	assert.Equal(t, uint64(0), state.Cycles)
	// the previous program does not leak past the new one
	assert.Equal(t, byte(0), m.Peek(0x208))
	// keys are host state
	assert.True(t, m.Key(4))
}

// TestConstantSetInstructions
func TestConstantSetInstructions(t *testing.T) {
	m := chip8.NewMachine()

	program := []byte{
		// set v0 to 128
		0x60, 128,
		// set v1 to 16
		0x61, 16,
		// set v2 to 1
		0x62, 1,
		// add to v2 4
		0x72, 4,
		// set vA to 2 and add 3
		0x6A, 0x02,
		0x7A, 0x03,
		// add wraps without touching VF
		0x63, 0xFF,
		0x73, 0x02,
	}
	runProgram(t, m, program, 8)

	assertVxEq(t, "LD V0", m, 0x0, 128)
	assertVxEq(t, "LD V1", m, 0x1, 16)
	assertVxEq(t, "ADD V2", m, 0x2, 5)
	assertVxEq(t, "ADD VA", m, 0xA, 5)
	assertVxEq(t, "ADD V3 wraps", m, 0x3, 1)
	assertVxEq(t, "ADD V3 flag", m, 0xF, 0)
}

// TestSimpleSkips runs every skip instruction once with a true and once with a false condition
func TestSimpleSkips(t *testing.T) {
	m := chip8.NewMachine()

	program := []byte{
		// set v0 to 128
		0x60, 128,
		// set v1 to 16
		0x61, 16,
		// set v2 to 128
		0x62, 128,

		// if v0 == 128, do not set v3 to 1
		0x30, 128,
		0x63, 1,

		// if v0 == 16, do not set vA to 1
		0x30, 16,
		0x6A, 1,

		// if v0 != 128, do not set v4 to 1
		0x40, 128,
		0x64, 1,

		// if v0 != 16, do not set vB to 1
		0x40, 16,
		0x6B, 1,

		// if v0 == v1, do not set v5 to 1
		0x50, 0x10,
		0x65, 1,

		// if v0 == v2, do not set v6 to 1
		0x50, 0x20,
		0x66, 1,

		// if v0 != v1, do not set v7 to 1
		0x90, 0x10,
		0x67, 1,

		// if v0 != v2, do not set v8 to 1
		0x90, 0x20,
		0x68, 1,
	}
	runProgram(t, m, program, 15)

	assertVxEq(t, "SE Vx kk true", m, 0x3, 0x0)
	assertVxEq(t, "SE Vx kk false", m, 0xA, 0x1)
	assertVxEq(t, "SNE Vx kk true", m, 0xB, 0x0)
	assertVxEq(t, "SNE Vx kk false", m, 0x4, 0x1)
	assertVxEq(t, "SE Vx V2 true", m, 0x6, 0x0)
	assertVxEq(t, "SE Vx V1 false", m, 0x5, 0x1)
	assertVxEq(t, "SNE Vx V1 true", m, 0x7, 0x0)
	assertVxEq(t, "SNE Vx V2 false", m, 0x8, 0x1)
	assert.Equal(t, uint16(0x200+len(program)), m.Pc())
}

func TestAddRegisters_AllPairs(t *testing.T) {
	m := chip8.NewMachine()

	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			runProgram(t, m, []byte{
				0x60, byte(a),
				0x61, byte(b),
				0x80, 0x14,
			}, 3)

			sum := a + b
			if m.V(0) != byte(sum) || m.V(0xF) != bool2byte(sum > 255) {
				t.Fatalf("ADD V0, V1 with %d + %d: V0 = %d, VF = %d", a, b, m.V(0), m.V(0xF))
			}
		}
	}
}

func TestSubRegisters_AllPairs(t *testing.T) {
	m := chip8.NewMachine()

	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			runProgram(t, m, []byte{
				0x60, byte(a),
				0x61, byte(b),
				0x80, 0x15,
			}, 3)

			if m.V(0) != byte(a-b) || m.V(0xF) != bool2byte(a >= b) {
				t.Fatalf("SUB V0, V1 with %d - %d: V0 = %d, VF = %d", a, b, m.V(0), m.V(0xF))
			}
		}
	}
}

func TestRegisterOperations(t *testing.T) {
	tests := []struct {
		name   string
		quirks chip8.Quirks
		vx, vy byte
		vf     byte
		opCode uint16
		want   byte
		wantVF byte
	}{
		{name: "LD", vx: 1, vy: 2, vf: 7, opCode: 0x8010, want: 2, wantVF: 7},
		{name: "OR", vx: 0b1100, vy: 0b1010, vf: 7, opCode: 0x8011, want: 0b1110, wantVF: 7},
		{name: "AND", vx: 0b1100, vy: 0b1010, vf: 7, opCode: 0x8012, want: 0b1000, wantVF: 7},
		{name: "XOR", vx: 0b1100, vy: 0b1010, vf: 7, opCode: 0x8013, want: 0b0110, wantVF: 7},
		{name: "OR vf reset", quirks: chip8.QuirkVfReset, vx: 0b1100, vy: 0b1010, vf: 7, opCode: 0x8011, want: 0b1110, wantVF: 0},
		{name: "AND vf reset", quirks: chip8.QuirkVfReset, vx: 0b1100, vy: 0b1010, vf: 7, opCode: 0x8012, want: 0b1000, wantVF: 0},
		{name: "XOR vf reset", quirks: chip8.QuirkVfReset, vx: 0b1100, vy: 0b1010, vf: 7, opCode: 0x8013, want: 0b0110, wantVF: 0},
		{name: "SHR", vx: 0b10000001, vy: 0, opCode: 0x8016, want: 0b01000000, wantVF: 1},
		{name: "SHR even", vx: 0b10000010, vy: 0, opCode: 0x8016, want: 0b01000001, wantVF: 0},
		{name: "SHR uses vy", quirks: chip8.QuirkShiftUsesVy, vx: 0xF0, vy: 0b11, opCode: 0x8016, want: 0b1, wantVF: 1},
		{name: "SUBN", vx: 3, vy: 10, opCode: 0x8017, want: 7, wantVF: 1},
		{name: "SUBN borrow", vx: 10, vy: 3, opCode: 0x8017, want: 249, wantVF: 0},
		{name: "SUBN equal", vx: 5, vy: 5, opCode: 0x8017, want: 0, wantVF: 1},
		{name: "SHL", vx: 0b10000001, vy: 0, opCode: 0x801E, want: 0b00000010, wantVF: 1},
		{name: "SHL small", vx: 0b01000001, vy: 0, opCode: 0x801E, want: 0b10000010, wantVF: 0},
		{name: "SHL uses vy", quirks: chip8.QuirkShiftUsesVy, vx: 0x01, vy: 0x81, opCode: 0x801E, want: 0x02, wantVF: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := chip8.NewMachine(func(c *chip8.MachineConfig) {
				c.Quirks = tt.quirks
			})

			runProgram(t, m, []byte{
				0x60, tt.vx,
				0x61, tt.vy,
				0x6F, tt.vf,
				byte(tt.opCode >> 8), byte(tt.opCode),
			}, 4)

			assertVxEq(t, "result", m, 0x0, tt.want)
			assertVxEq(t, "flag", m, 0xF, tt.wantVF)
		})
	}
}

func TestFlagRegisterAsOperand(t *testing.T) {
	m := chip8.NewMachine()

	// ADD VF, V1: the carry overwrites the sum
	runProgram(t, m, []byte{
		0x6F, 0xFF,
		0x61, 0x01,
		0x8F, 0x14,
	}, 3)
	assertVxEq(t, "ADD VF carry", m, 0xF, 1)

	// SHR VF: the dropped bit overwrites the result
	runProgram(t, m, []byte{
		0x6F, 0x02,
		0x8F, 0x06,
	}, 2)
	assertVxEq(t, "SHR VF", m, 0xF, 0)
}

func TestClearScreen(t *testing.T) {
	m := chip8.NewMachine()

	runProgram(t, m, []byte{
		// draw the glyph for 0
		0x60, 0x00,
		0xF0, 0x29,
		0xD0, 0x05,
		0x00, 0xE0,
	}, 3)
	require.False(t, m.Framebuffer().IsBlank())

	draws := m.DrawCount()
	require.NoError(t, m.Step())
	assert.True(t, m.Framebuffer().IsBlank())
	assert.Equal(t, draws+1, m.DrawCount())
}

func TestDraw_DoubleXorRestores(t *testing.T) {
	m := chip8.NewMachine()

	program := []byte{
		0x60, 0x0A,
		0x61, 0x03,
		0x62, 0x3C,
		0xF0, 0x29,
		// something already on screen
		0xD1, 0x25,
		0xD1, 0x15,
		0xD1, 0x15,
	}
	runProgram(t, m, program, 5)
	before := m.Framebuffer()

	require.NoError(t, m.Step())
	assert.NotEqual(t, before, m.Framebuffer())

	require.NoError(t, m.Step())
	assert.Equal(t, before, m.Framebuffer())
	assertVxEq(t, "collision", m, 0xF, 1)
}

func TestDraw_Collision(t *testing.T) {
	m := chip8.NewMachine()

	runProgram(t, m, []byte{
		0x60, 0x00,
		0xF0, 0x29,
		0xD0, 0x05,
	}, 3)
	assertVxEq(t, "first draw", m, 0xF, 0)

	fb := m.Framebuffer()
	// top row of the 0 glyph is 0xF0
	for x := 0; x < 8; x++ {
		assert.Equal(t, x < 4, fb.Pixel(x, 0), "pixel %d", x)
	}
}

func TestDraw_Wraps(t *testing.T) {
	program := []byte{
		// x = 62, y = 31
		0x60, 62,
		0x61, 31,
		0xA2, 0x0A,
		0xD0, 0x12,
		0x12, 0x08,
		0xFF, 0x81,
	}

	t.Run("wrap", func(t *testing.T) {
		m := chip8.NewMachine()
		runProgram(t, m, program, 4)
		fb := m.Framebuffer()

		for _, x := range []int{62, 63, 0, 1, 2, 3, 4, 5} {
			assert.True(t, fb.Pixel(x, 31), "x=%d y=31", x)
		}
		assert.False(t, fb.Pixel(6, 31))
		assert.False(t, fb.Pixel(0, 30), "the row does not spill to the next one")

		// second row, 0x81, wrapped to the top
		assert.True(t, fb.Pixel(62, 0))
		assert.False(t, fb.Pixel(63, 0))
		assert.True(t, fb.Pixel(5, 0))
		assert.False(t, fb.Pixel(4, 0))
	})

	t.Run("clip", func(t *testing.T) {
		m := chip8.NewMachine(func(c *chip8.MachineConfig) {
			c.Quirks = chip8.QuirkClipSprites
		})
		runProgram(t, m, program, 4)
		fb := m.Framebuffer()

		assert.True(t, fb.Pixel(62, 31))
		assert.True(t, fb.Pixel(63, 31))
		for x := 0; x < 8; x++ {
			assert.False(t, fb.Pixel(x, 31), "x=%d y=31", x)
			assert.False(t, fb.Pixel(x, 0), "x=%d y=0", x)
		}
		assert.False(t, fb.Pixel(62, 0))
	})

	t.Run("start position wraps", func(t *testing.T) {
		m := chip8.NewMachine()
		runProgram(t, m, []byte{
			// x = 64 + 8, y = 32 + 1
			0x60, 72,
			0x61, 33,
			0xA2, 0x0A,
			0xD0, 0x11,
			0x12, 0x08,
			0x80,
		}, 4)
		assert.True(t, m.Framebuffer().Pixel(8, 1))
	})
}

func TestDraw_ZeroRows(t *testing.T) {
	m := chip8.NewMachine()

	runProgram(t, m, []byte{
		0x6F, 0x01,
		0xD0, 0x00,
	}, 2)
	assert.True(t, m.Framebuffer().IsBlank())
	assertVxEq(t, "collision", m, 0xF, 0)
}

func TestSubroutines(t *testing.T) {
	m := chip8.NewMachine()

	program := []byte{
		// 0x200: call 0x206
		0x22, 0x06,
		// 0x202: set v1 to 2
		0x61, 0x02,
		// 0x204: loop
		0x12, 0x04,
		// 0x206: set v0 to 1 and return
		0x60, 0x01,
		0x00, 0xEE,
	}
	runProgram(t, m, program, 1)
	assert.Equal(t, uint16(0x206), m.Pc())
	assert.Equal(t, byte(1), m.State().Sp)
	assert.Equal(t, uint16(0x202), m.State().Stack[0])

	require.NoError(t, m.Step())
	require.NoError(t, m.Step())
	assert.Equal(t, uint16(0x202), m.Pc())
	require.NoError(t, m.Step())

	assertVxEq(t, "subroutine", m, 0x0, 1)
	assertVxEq(t, "after return", m, 0x1, 2)
}

func TestStackUnderflow(t *testing.T) {
	m := chip8.NewMachine()

	require.NoError(t, m.Load([]byte{0x00, 0xEE}))

	err := m.Step()
	require.ErrorIs(t, err, chip8.ErrStackUnderflow)

	var stackErr chip8.StackError
	require.ErrorAs(t, err, &stackErr)
	assert.Equal(t, uint16(0x200), stackErr.Pc)
	assert.Equal(t, uint16(0x200), m.Pc())
}

func TestStackOverflow(t *testing.T) {
	m := chip8.NewMachine()

	// each instruction calls the next one
	var program []byte
	for addr := uint16(0x202); addr <= 0x222; addr += 2 {
		program = append(program, 0x20|byte(addr>>8), byte(addr))
	}

	runProgram(t, m, program, chip8.StackDepth)
	assert.Equal(t, byte(chip8.StackDepth), m.State().Sp)

	err := m.Step()
	require.ErrorIs(t, err, chip8.ErrStackOverflow)
	assert.Equal(t, uint16(0x200+2*chip8.StackDepth), m.Pc())
	assert.Equal(t, byte(chip8.StackDepth), m.State().Sp)
}

func TestFatalErrorIsLatched(t *testing.T) {
	m := chip8.NewMachine()

	require.NoError(t, m.Load([]byte{0x50, 0x01}))

	err := m.Step()
	require.ErrorIs(t, err, chip8.ErrUnknownInstruction)

	var unknown chip8.ErrOpCodeUnknown
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, uint16(0x5001), unknown.OpCode)
	assert.Equal(t, uint16(0x200), unknown.Pc)

	state := m.State()
	for i := 0; i < 3; i++ {
		assert.Equal(t, err, m.Step())
	}
	assert.Equal(t, state, m.State())
	assert.Equal(t, err, m.Err())

	require.NoError(t, m.Load([]byte{0x60, 0x01}))
	assert.NoError(t, m.Err())
	require.NoError(t, m.Step())
	assertVxEq(t, "after reload", m, 0x0, 1)
}

func TestUnknownInstructions(t *testing.T) {
	for _, opCode := range []uint16{0x5001, 0x800F, 0x9008, 0xE000, 0xE1A0, 0xF000, 0xF0FF} {
		m := chip8.NewMachine()
		require.NoError(t, m.Load([]byte{byte(opCode >> 8), byte(opCode)}))
		assert.ErrorIs(t, m.Step(), chip8.ErrUnknownInstruction, "opcode %04X", opCode)
	}
}

func TestTimers(t *testing.T) {
	m := chip8.NewMachine()

	runProgram(t, m, []byte{
		0x60, 0x05,
		0xF0, 0x15,
		0xF0, 0x18,
	}, 3)
	assert.Equal(t, byte(5), m.DelayTimer())
	assert.True(t, m.IsSoundActive())

	for i := 0; i < 5; i++ {
		m.TickTimers()
	}
	assert.Equal(t, byte(0), m.DelayTimer())
	assert.Equal(t, byte(0), m.SoundTimer())
	assert.False(t, m.IsSoundActive())

	m.TickTimers()
	assert.Equal(t, byte(0), m.DelayTimer())
}

func TestReadDelayTimer(t *testing.T) {
	m := chip8.NewMachine()

	runProgram(t, m, []byte{
		0x60, 0x0A,
		0xF0, 0x15,
		0xF3, 0x07,
	}, 2)
	m.TickTimers()
	m.TickTimers()
	require.NoError(t, m.Step())

	assertVxEq(t, "LD V3, DT", m, 0x3, 8)
}

func TestWaitForKey(t *testing.T) {
	m := chip8.NewMachine()

	require.NoError(t, m.Load([]byte{
		0xFA, 0x0A,
		0x60, 0x01,
	}))

	require.NoError(t, m.Step())
	reg, waiting := m.AwaitingKey()
	require.True(t, waiting)
	assert.Equal(t, byte(0xA), reg)

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Step())
		assert.Equal(t, uint16(0x200), m.Pc())
	}

	require.NoError(t, m.SetKey(3, true))
	require.NoError(t, m.Step())
	assertVxEq(t, "key", m, 0xA, 3)
	assert.Equal(t, uint16(0x202), m.Pc())
	_, waiting = m.AwaitingKey()
	assert.False(t, waiting)
}

func TestWaitForKey_AlreadyPressed(t *testing.T) {
	m := chip8.NewMachine()

	require.NoError(t, m.SetKey(0xB, true))
	require.NoError(t, m.SetKey(0xC, true))
	runProgram(t, m, []byte{0xF5, 0x0A}, 1)

	assertVxEq(t, "lowest key", m, 0x5, 0xB)
	assert.Equal(t, uint16(0x202), m.Pc())
}

func TestKeySkips(t *testing.T) {
	m := chip8.NewMachine()
	require.NoError(t, m.SetKey(0x7, true))

	runProgram(t, m, []byte{
		0x60, 0x07,
		0x61, 0x08,
		// skip if key 7 pressed
		0xE0, 0x9E,
		0x62, 0x01,
		// skip if key 8 pressed
		0xE1, 0x9E,
		0x63, 0x01,
		// skip if key 7 not pressed
		0xE0, 0xA1,
		0x64, 0x01,
		// skip if key 8 not pressed
		0xE1, 0xA1,
		0x65, 0x01,
	}, 8)

	assertVxEq(t, "SKP true", m, 0x2, 0)
	assertVxEq(t, "SKP false", m, 0x3, 1)
	assertVxEq(t, "SKNP false", m, 0x4, 1)
	assertVxEq(t, "SKNP true", m, 0x5, 0)
}

func TestKeySkips_KeyOutOfRange(t *testing.T) {
	m := chip8.NewMachine()

	// V0 = 0x10 is no key, it is never pressed
	runProgram(t, m, []byte{
		0x60, 0x10,
		0xE0, 0xA1,
		0x61, 0x01,
	}, 3)
	assertVxEq(t, "SKNP", m, 0x1, 0)
}

func TestSetKey(t *testing.T) {
	m := chip8.NewMachine()

	require.NoError(t, m.SetKey(0xF, true))
	assert.True(t, m.Key(0xF))
	assert.Equal(t, uint16(1<<0xF), m.Keypad().Mask())

	require.NoError(t, m.SetKey(0xF, false))
	assert.False(t, m.Key(0xF))

	assert.ErrorIs(t, m.SetKey(0x10, true), chip8.ErrKeyOutOfRange)
}

func TestIndexInstructions(t *testing.T) {
	m := chip8.NewMachine()

	runProgram(t, m, []byte{
		0xA1, 0x23,
		0x60, 0x10,
		0xF0, 0x1E,
	}, 3)
	assert.Equal(t, uint16(0x133), m.I())
}

func TestBCD(t *testing.T) {
	m := chip8.NewMachine()

	runProgram(t, m, []byte{
		0x63, 254,
		0xA3, 0x00,
		0xF3, 0x33,
	}, 3)

	assert.Equal(t, byte(2), m.Peek(0x300))
	assert.Equal(t, byte(5), m.Peek(0x301))
	assert.Equal(t, byte(4), m.Peek(0x302))
	assert.Equal(t, uint16(0x300), m.I())
}

func TestFontSprite(t *testing.T) {
	m := chip8.NewMachine()
	runProgram(t, m, []byte{
		0x60, 0x0A,
		0xF0, 0x29,
	}, 2)
	assert.Equal(t, uint16(chip8.DefaultFontAddress+50), m.I())

	// only the low nibble selects the glyph
	runProgram(t, m, []byte{
		0x60, 0x1A,
		0xF0, 0x29,
	}, 2)
	assert.Equal(t, uint16(chip8.DefaultFontAddress+50), m.I())

	m = chip8.NewMachine(func(c *chip8.MachineConfig) {
		c.FontAddress = 0x000
	})
	runProgram(t, m, []byte{
		0x60, 0x0F,
		0xF0, 0x29,
	}, 2)
	assert.Equal(t, uint16(75), m.I())
	assert.Equal(t, byte(0xF0), m.Peek(75))
}

func TestStoreAndLoadRegisters(t *testing.T) {
	program := []byte{
		0x60, 0x11,
		0x61, 0x22,
		0x62, 0x33,
		0xA3, 0x00,
		0xF2, 0x55,
		// clear and read back two registers
		0x60, 0x00,
		0x61, 0x00,
		0x62, 0x00,
		0xF1, 0x65,
	}

	t.Run("default", func(t *testing.T) {
		m := chip8.NewMachine()
		runProgram(t, m, program, 9)

		assert.Equal(t, byte(0x11), m.Peek(0x300))
		assert.Equal(t, byte(0x22), m.Peek(0x301))
		assert.Equal(t, byte(0x33), m.Peek(0x302))
		assert.Equal(t, byte(0x00), m.Peek(0x303))

		assertVxEq(t, "LD V0", m, 0x0, 0x11)
		assertVxEq(t, "LD V1", m, 0x1, 0x22)
		assertVxEq(t, "LD V2 untouched", m, 0x2, 0x00)
		assert.Equal(t, uint16(0x300), m.I())
	})

	t.Run("memory moves index", func(t *testing.T) {
		m := chip8.NewMachine(func(c *chip8.MachineConfig) {
			c.Quirks = chip8.QuirkMemoryMovesIndex
		})
		runProgram(t, m, program, 9)

		assert.Equal(t, byte(0x11), m.Peek(0x300))
		// I moved to 0x303 after the store and to 0x305 after the load
		assert.Equal(t, uint16(0x305), m.I())
		assertVxEq(t, "LD V0 from 0x303", m, 0x0, 0x00)
	})
}

func TestStoreOutOfRangeLeavesMemory(t *testing.T) {
	m := chip8.NewMachine()

	runProgram(t, m, []byte{
		0x60, 0x11,
		0xAF, 0xFE,
	}, 2)
	mem := m.Memory()

	require.NoError(t, m.Load([]byte{
		0x60, 0x11,
		0xAF, 0xFE,
		0xF3, 0x55,
	}))
	require.NoError(t, m.Step())
	require.NoError(t, m.Step())

	err := m.Step()
	require.ErrorIs(t, err, chip8.ErrAddressOutOfRange)

	var addrErr chip8.AddressError
	require.ErrorAs(t, err, &addrErr)
	assert.Equal(t, uint32(0x1000), addrErr.Address)
	assert.Equal(t, uint16(0x204), addrErr.Pc)

	got := m.Memory()
	assert.Equal(t, mem[0xF00:], got[0xF00:])
	assert.Equal(t, uint16(0x204), m.Pc())
}

func TestJumps(t *testing.T) {
	program := []byte{
		0x60, 0x02,
		0x62, 0x04,
		0xB2, 0x10,
	}

	t.Run("V0", func(t *testing.T) {
		m := chip8.NewMachine()
		runProgram(t, m, program, 3)
		assert.Equal(t, uint16(0x212), m.Pc())
	})

	t.Run("Vx", func(t *testing.T) {
		m := chip8.NewMachine(func(c *chip8.MachineConfig) {
			c.Quirks = chip8.QuirkJumpUsesVx
		})
		runProgram(t, m, program, 3)
		assert.Equal(t, uint16(0x214), m.Pc())
	})

	t.Run("out of range", func(t *testing.T) {
		m := chip8.NewMachine()
		require.NoError(t, m.Load([]byte{
			0x60, 0xFF,
			0xBF, 0xFF,
		}))
		require.NoError(t, m.Step())
		err := m.Step()
		require.ErrorIs(t, err, chip8.ErrAddressOutOfRange)
		assert.Equal(t, uint16(0x202), m.Pc())
	})
}

func TestRandom(t *testing.T) {
	m := chip8.NewMachine(func(c *chip8.MachineConfig) {
		c.Random = bytes.NewReader([]byte{0xAB})
	})

	runProgram(t, m, []byte{
		0xC0, 0x0F,
		0xC1, 0xFF,
	}, 1)
	assertVxEq(t, "RND", m, 0x0, 0x0B)

	// the source is exhausted
	err := m.Step()
	require.ErrorIs(t, err, chip8.ErrRandomSourceFailure)
	assert.Equal(t, uint16(0x202), m.Pc())
}

func TestMachineRoutineInterpreter(t *testing.T) {
	var called []uint16
	errHalt := errors.New("halt")

	m := chip8.NewMachine(func(c *chip8.MachineConfig) {
		c.MachineRoutineInterpreter = func(addr uint16, m *chip8.Machine) error {
			called = append(called, addr)
			if addr == 0x456 {
				return errHalt
			}
			return nil
		}
	})

	require.NoError(t, m.Load([]byte{
		0x01, 0x23,
		0x04, 0x56,
	}))
	require.NoError(t, m.Step())
	assert.ErrorIs(t, m.Step(), errHalt)
	assert.Equal(t, []uint16{0x123, 0x456}, called)
	assert.Equal(t, uint16(0x202), m.Pc())
}

func TestReset(t *testing.T) {
	m := chip8.NewMachine()

	// overwrite the first instruction
	runProgram(t, m, []byte{
		0x60, 0x99,
		0xA2, 0x00,
		0xF0, 0x55,
	}, 3)
	require.Equal(t, byte(0x99), m.Peek(0x200))

	m.Reset()
	assert.Equal(t, byte(0x60), m.Peek(0x200))
	assert.Equal(t, uint16(0x200), m.Pc())
	assertVxEq(t, "V0", m, 0x0, 0)
	assert.Equal(t, uint64(0), m.Cycles())
}

func TestCycles(t *testing.T) {
	m := chip8.NewMachine()

	runProgram(t, m, []byte{0x12, 0x00}, 10)
	assert.Equal(t, uint64(10), m.Cycles())
}

func TestDisassemble(t *testing.T) {
	m := chip8.NewMachine()
	require.NoError(t, m.Load([]byte{
		0x6A, 0x02,
		0xD0, 0x15,
		0x50, 0x01,
	}))

	assert.Equal(t, "0200: 6A02  LD VA, 0x02", m.Disassemble(0x200))
	assert.Equal(t, "0202: D015  DRW V0, V1, 5", m.Disassemble(0x202))
	assert.Equal(t, "0204: 5001  DW 0x5001", m.Disassemble(0x204))
	assert.Equal(t, "0FFF: ----", m.Disassemble(0xFFF))
}

func TestMachinesAreIndependent(t *testing.T) {
	a := chip8.NewMachine()
	b := chip8.NewMachine()

	runProgram(t, a, []byte{0x60, 0x01}, 1)
	runProgram(t, b, []byte{0x60, 0x02}, 1)

	assertVxEq(t, "a", a, 0x0, 1)
	assertVxEq(t, "b", b, 0x0, 2)
}

func bool2byte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
