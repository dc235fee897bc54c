package chip8

import (
	"fmt"
	"io"
)

// execute runs a decoded instruction. pc is the address it was fetched from,
// m.pc already points to the next instruction.
//
// Every check that can fail happens before the first write, so an
// instruction that returns an error leaves the machine untouched.
func (m *Machine) execute(in Instruction, pc uint16) error {
	x, y := in.X, in.Y

	switch in.Op {
	case OpSys:
		// SYS addr :: Jump to a machine code routine at nnn.
		// Ignored unless the host provides an interpreter for it.
		if m.machineRoutineInterpreter != nil {
			return m.machineRoutineInterpreter(in.NNN, m)
		}

	case OpCls:
		// CLS :: Clear the display.
		m.screen = Framebuffer{}
		m.draws++

	case OpRet:
		// RET :: Return from a subroutine.
		if m.sp == 0 {
			return StackError{Pc: pc, Err: ErrStackUnderflow}
		}
		m.sp--
		m.pc = m.stack[m.sp]

	case OpJp:
		// JP addr :: Jump to location nnn.
		m.pc = in.NNN

	case OpCall:
		// CALL addr :: Call subroutine at nnn.
		if m.sp >= StackDepth {
			return StackError{Pc: pc, Err: ErrStackOverflow}
		}
		m.stack[m.sp] = m.pc
		m.sp++
		m.pc = in.NNN

	case OpSeByte:
		// SE Vx, byte :: Skip next instruction if Vx = kk.
		if m.v[x] == in.KK {
			m.pc += 2
		}

	case OpSneByte:
		// SNE Vx, byte :: Skip next instruction if Vx != kk.
		if m.v[x] != in.KK {
			m.pc += 2
		}

	case OpSeReg:
		// SE Vx, Vy :: Skip next instruction if Vx = Vy.
		if m.v[x] == m.v[y] {
			m.pc += 2
		}

	case OpLdByte:
		// LD Vx, byte :: Set Vx = kk.
		m.v[x] = in.KK

	case OpAddByte:
		// ADD Vx, byte :: Set Vx = Vx + kk. VF is not affected.
		m.v[x] += in.KK

	case OpLdReg:
		// LD Vx, Vy :: Set Vx = Vy.
		m.v[x] = m.v[y]

	case OpOr:
		// OR Vx, Vy :: Set Vx = Vx OR Vy.
		m.v[x] |= m.v[y]
		m.vfReset()

	case OpAnd:
		// AND Vx, Vy :: Set Vx = Vx AND Vy.
		m.v[x] &= m.v[y]
		m.vfReset()

	case OpXor:
		// XOR Vx, Vy :: Set Vx = Vx XOR Vy.
		m.v[x] ^= m.v[y]
		m.vfReset()

	case OpAddReg:
		// ADD Vx, Vy :: Set Vx = Vx + Vy, set VF = carry.
		// The flag is written last so it wins when x is F.
		r := uint16(m.v[x]) + uint16(m.v[y])
		m.v[x] = byte(r)
		m.v[0xF] = byte(r >> 8)

	case OpSub:
		// SUB Vx, Vy :: Set Vx = Vx - Vy, set VF = NOT borrow.
		carry := m.v[x] >= m.v[y]
		m.v[x] = m.v[x] - m.v[y]
		m.v[0xF] = bool2byte(carry)

	case OpShr:
		// SHR Vx {, Vy} :: Set Vx = Vx SHR 1, VF = the bit shifted out.
		if m.quirks.Has(QuirkShiftUsesVy) {
			m.v[x] = m.v[y]
		}
		carry := m.v[x] & 0b00000001
		m.v[x] = m.v[x] >> 1
		m.v[0xF] = carry

	case OpSubn:
		// SUBN Vx, Vy :: Set Vx = Vy - Vx, set VF = NOT borrow.
		carry := m.v[y] >= m.v[x]
		m.v[x] = m.v[y] - m.v[x]
		m.v[0xF] = bool2byte(carry)

	case OpShl:
		// SHL Vx {, Vy} :: Set Vx = Vx SHL 1, VF = the bit shifted out.
		if m.quirks.Has(QuirkShiftUsesVy) {
			m.v[x] = m.v[y]
		}
		carry := (m.v[x] & 0b10000000) >> 7
		m.v[x] = m.v[x] << 1
		m.v[0xF] = carry

	case OpSneReg:
		// SNE Vx, Vy :: Skip next instruction if Vx != Vy.
		if m.v[x] != m.v[y] {
			m.pc += 2
		}

	case OpLdI:
		// LD I, addr :: Set I = nnn.
		m.i = in.NNN

	case OpJpV0:
		// JP V0, addr :: Jump to location nnn + V0 (or xnn + Vx).
		base := m.v[0]
		if m.quirks.Has(QuirkJumpUsesVx) {
			base = m.v[x]
		}
		target := uint32(in.NNN) + uint32(base)
		if target >= MemorySize {
			return AddressError{Address: target, Pc: pc}
		}
		m.pc = uint16(target)

	case OpRnd:
		// RND Vx, byte :: Set Vx = random byte AND kk.
		buff := [1]byte{}
		if _, err := io.ReadFull(m.random, buff[:]); err != nil {
			return fmt.Errorf("%w at PC=%03X: %w", ErrRandomSourceFailure, pc, err)
		}
		m.v[x] = buff[0] & in.KK

	case OpDrw:
		// DRW Vx, Vy, nibble :: Display n-byte sprite starting at memory location I at (Vx, Vy), set VF = collision.
		// The starting position wraps, the rows past the bottom edge wrap too unless sprites are clipped.
		sprite, ok := m.memory.span(m.i, int(in.N))
		if !ok {
			return AddressError{Address: firstOutOfRange(m.i), Pc: pc}
		}

		clip := m.quirks.Has(QuirkClipSprites)
		x0 := m.v[x] % ScreenWidth
		y0 := m.v[y] % ScreenHeight

		collision := false
		for row, b := range sprite {
			yy := int(y0) + row
			if yy >= ScreenHeight {
				if clip {
					break
				}
				yy -= ScreenHeight
			}
			if m.screen.drawRow(x0, byte(yy), b, clip) {
				collision = true
			}
		}
		m.v[0xF] = bool2byte(collision)
		m.draws++

	case OpSkp:
		// SKP Vx :: Skip next instruction if key with the value of Vx is pressed.
		if m.keypad.IsPressed(m.v[x]) {
			m.pc += 2
		}

	case OpSknp:
		// SKNP Vx :: Skip next instruction if key with the value of Vx is not pressed.
		if !m.keypad.IsPressed(m.v[x]) {
			m.pc += 2
		}

	case OpLdVxDt:
		// LD Vx, DT :: Set Vx = delay timer value.
		m.v[x] = m.dt

	case OpLdVxK:
		// LD Vx, K :: Wait for a key press, store the value of the key in Vx.
		// When no key is down the machine stays on this instruction and
		// Step polls the keypad until one is.
		if k, pressed := m.keypad.FirstPressed(); pressed {
			m.v[x] = k
			break
		}
		m.awaitingKey = true
		m.keyRegister = x
		m.pc = pc

	case OpLdDtVx:
		// LD DT, Vx :: Set delay timer = Vx.
		m.dt = m.v[x]

	case OpLdStVx:
		// LD ST, Vx :: Set sound timer = Vx.
		m.st = m.v[x]

	case OpAddI:
		// ADD I, Vx :: Set I = I + Vx. Only accesses through I are checked.
		m.i += uint16(m.v[x])

	case OpLdF:
		// LD F, Vx :: Set I = location of sprite for digit Vx.
		m.i = m.fontAddress + FontGlyphSize*uint16(m.v[x]&0xF)

	case OpLdB:
		// LD B, Vx :: Store BCD representation of Vx in memory locations I, I+1, and I+2.
		dst, ok := m.memory.span(m.i, 3)
		if !ok {
			return AddressError{Address: firstOutOfRange(m.i), Pc: pc}
		}
		v := m.v[x]
		dst[0] = v / 100
		dst[1] = (v / 10) % 10
		dst[2] = v % 10

	case OpStore:
		// LD [I], Vx :: Store registers V0 through Vx in memory starting at location I.
		dst, ok := m.memory.span(m.i, int(x)+1)
		if !ok {
			return AddressError{Address: firstOutOfRange(m.i), Pc: pc}
		}
		copy(dst, m.v[:x+1])
		if m.quirks.Has(QuirkMemoryMovesIndex) {
			m.i += uint16(x) + 1
		}

	case OpLoad:
		// LD Vx, [I] :: Read registers V0 through Vx from memory starting at location I.
		src, ok := m.memory.span(m.i, int(x)+1)
		if !ok {
			return AddressError{Address: firstOutOfRange(m.i), Pc: pc}
		}
		copy(m.v[:x+1], src)
		if m.quirks.Has(QuirkMemoryMovesIndex) {
			m.i += uint16(x) + 1
		}

	default:
		return ErrOpCodeUnknown{OpCode: in.Opcode(), Pc: pc}
	}

	return nil
}

func (m *Machine) vfReset() {
	if m.quirks.Has(QuirkVfReset) {
		m.v[0xF] = 0
	}
}
