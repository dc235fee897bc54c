package chip8

import "fmt"

// Op identifies one of the 35 instruction forms.
type Op byte

const (
	OpInvalid Op = iota

	OpSys     // 0nnn SYS addr
	OpCls     // 00E0 CLS
	OpRet     // 00EE RET
	OpJp      // 1nnn JP addr
	OpCall    // 2nnn CALL addr
	OpSeByte  // 3xkk SE Vx, byte
	OpSneByte // 4xkk SNE Vx, byte
	OpSeReg   // 5xy0 SE Vx, Vy
	OpLdByte  // 6xkk LD Vx, byte
	OpAddByte // 7xkk ADD Vx, byte
	OpLdReg   // 8xy0 LD Vx, Vy
	OpOr      // 8xy1 OR Vx, Vy
	OpAnd     // 8xy2 AND Vx, Vy
	OpXor     // 8xy3 XOR Vx, Vy
	OpAddReg  // 8xy4 ADD Vx, Vy
	OpSub     // 8xy5 SUB Vx, Vy
	OpShr     // 8xy6 SHR Vx {, Vy}
	OpSubn    // 8xy7 SUBN Vx, Vy
	OpShl     // 8xyE SHL Vx {, Vy}
	OpSneReg  // 9xy0 SNE Vx, Vy
	OpLdI     // Annn LD I, addr
	OpJpV0    // Bnnn JP V0, addr
	OpRnd     // Cxkk RND Vx, byte
	OpDrw     // Dxyn DRW Vx, Vy, nibble
	OpSkp     // Ex9E SKP Vx
	OpSknp    // ExA1 SKNP Vx
	OpLdVxDt  // Fx07 LD Vx, DT
	OpLdVxK   // Fx0A LD Vx, K
	OpLdDtVx  // Fx15 LD DT, Vx
	OpLdStVx  // Fx18 LD ST, Vx
	OpAddI    // Fx1E ADD I, Vx
	OpLdF     // Fx29 LD F, Vx
	OpLdB     // Fx33 LD B, Vx
	OpStore   // Fx55 LD [I], Vx
	OpLoad    // Fx65 LD Vx, [I]

	opCount
)

// NumOps is the number of defined instruction forms.
const NumOps = int(opCount) - 1

var mnemonics = [opCount]string{
	OpInvalid: "???",
	OpSys:     "SYS",
	OpCls:     "CLS",
	OpRet:     "RET",
	OpJp:      "JP",
	OpCall:    "CALL",
	OpSeByte:  "SE",
	OpSneByte: "SNE",
	OpSeReg:   "SE",
	OpLdByte:  "LD",
	OpAddByte: "ADD",
	OpLdReg:   "LD",
	OpOr:      "OR",
	OpAnd:     "AND",
	OpXor:     "XOR",
	OpAddReg:  "ADD",
	OpSub:     "SUB",
	OpShr:     "SHR",
	OpSubn:    "SUBN",
	OpShl:     "SHL",
	OpSneReg:  "SNE",
	OpLdI:     "LD",
	OpJpV0:    "JP",
	OpRnd:     "RND",
	OpDrw:     "DRW",
	OpSkp:     "SKP",
	OpSknp:    "SKNP",
	OpLdVxDt:  "LD",
	OpLdVxK:   "LD",
	OpLdDtVx:  "LD",
	OpLdStVx:  "LD",
	OpAddI:    "ADD",
	OpLdF:     "LD",
	OpLdB:     "LD",
	OpStore:   "LD",
	OpLoad:    "LD",
}

// Mnemonic returns the assembler mnemonic of the op.
func (op Op) Mnemonic() string {
	if op >= opCount {
		return mnemonics[OpInvalid]
	}
	return mnemonics[op]
}

// Instruction is a decoded opcode. Only the operands used by Op are meaningful.
type Instruction struct {
	Op Op
	// X and Y are register indexes
	X, Y byte
	// N is the low nibble
	N byte
	// KK is the low byte
	KK byte
	// NNN is the 12-bit address
	NNN uint16
}

// Decode maps a 16-bit opcode onto its instruction form.
// Patterns that match no form return ErrOpCodeUnknown.
func Decode(opCode uint16) (Instruction, error) {
	in := Instruction{
		X:   byte(opCode>>8) & 0xF,
		Y:   byte(opCode>>4) & 0xF,
		N:   byte(opCode) & 0xF,
		KK:  byte(opCode),
		NNN: opCode & 0x0FFF,
	}

	switch opCode & 0xF000 {
	case 0x0000:
		switch opCode {
		case 0x00E0:
			in.Op = OpCls
		case 0x00EE:
			in.Op = OpRet
		default:
			in.Op = OpSys
		}
	case 0x1000:
		in.Op = OpJp
	case 0x2000:
		in.Op = OpCall
	case 0x3000:
		in.Op = OpSeByte
	case 0x4000:
		in.Op = OpSneByte
	case 0x5000:
		if in.N == 0 {
			in.Op = OpSeReg
		}
	case 0x6000:
		in.Op = OpLdByte
	case 0x7000:
		in.Op = OpAddByte
	case 0x8000:
		switch in.N {
		case 0x0:
			in.Op = OpLdReg
		case 0x1:
			in.Op = OpOr
		case 0x2:
			in.Op = OpAnd
		case 0x3:
			in.Op = OpXor
		case 0x4:
			in.Op = OpAddReg
		case 0x5:
			in.Op = OpSub
		case 0x6:
			in.Op = OpShr
		case 0x7:
			in.Op = OpSubn
		case 0xE:
			in.Op = OpShl
		}
	case 0x9000:
		if in.N == 0 {
			in.Op = OpSneReg
		}
	case 0xA000:
		in.Op = OpLdI
	case 0xB000:
		in.Op = OpJpV0
	case 0xC000:
		in.Op = OpRnd
	case 0xD000:
		in.Op = OpDrw
	case 0xE000:
		switch in.KK {
		case 0x9E:
			in.Op = OpSkp
		case 0xA1:
			in.Op = OpSknp
		}
	case 0xF000:
		switch in.KK {
		case 0x07:
			in.Op = OpLdVxDt
		case 0x0A:
			in.Op = OpLdVxK
		case 0x15:
			in.Op = OpLdDtVx
		case 0x18:
			in.Op = OpLdStVx
		case 0x1E:
			in.Op = OpAddI
		case 0x29:
			in.Op = OpLdF
		case 0x33:
			in.Op = OpLdB
		case 0x55:
			in.Op = OpStore
		case 0x65:
			in.Op = OpLoad
		}
	}

	if in.Op == OpInvalid {
		return Instruction{}, ErrOpCodeUnknown{OpCode: opCode}
	}

	return in, nil
}

// Opcode encodes the instruction back into its 16-bit form.
func (in Instruction) Opcode() uint16 {
	x := uint16(in.X&0xF) << 8
	y := uint16(in.Y&0xF) << 4
	kk := uint16(in.KK)
	nnn := in.NNN & 0x0FFF

	switch in.Op {
	case OpSys:
		return nnn
	case OpCls:
		return 0x00E0
	case OpRet:
		return 0x00EE
	case OpJp:
		return 0x1000 | nnn
	case OpCall:
		return 0x2000 | nnn
	case OpSeByte:
		return 0x3000 | x | kk
	case OpSneByte:
		return 0x4000 | x | kk
	case OpSeReg:
		return 0x5000 | x | y
	case OpLdByte:
		return 0x6000 | x | kk
	case OpAddByte:
		return 0x7000 | x | kk
	case OpLdReg:
		return 0x8000 | x | y
	case OpOr:
		return 0x8001 | x | y
	case OpAnd:
		return 0x8002 | x | y
	case OpXor:
		return 0x8003 | x | y
	case OpAddReg:
		return 0x8004 | x | y
	case OpSub:
		return 0x8005 | x | y
	case OpShr:
		return 0x8006 | x | y
	case OpSubn:
		return 0x8007 | x | y
	case OpShl:
		return 0x800E | x | y
	case OpSneReg:
		return 0x9000 | x | y
	case OpLdI:
		return 0xA000 | nnn
	case OpJpV0:
		return 0xB000 | nnn
	case OpRnd:
		return 0xC000 | x | kk
	case OpDrw:
		return 0xD000 | x | y | uint16(in.N&0xF)
	case OpSkp:
		return 0xE09E | x
	case OpSknp:
		return 0xE0A1 | x
	case OpLdVxDt:
		return 0xF007 | x
	case OpLdVxK:
		return 0xF00A | x
	case OpLdDtVx:
		return 0xF015 | x
	case OpLdStVx:
		return 0xF018 | x
	case OpAddI:
		return 0xF01E | x
	case OpLdF:
		return 0xF029 | x
	case OpLdB:
		return 0xF033 | x
	case OpStore:
		return 0xF055 | x
	case OpLoad:
		return 0xF065 | x
	}

	return 0
}

// String renders the instruction in the conventional assembler syntax.
func (in Instruction) String() string {
	m := in.Op.Mnemonic()

	switch in.Op {
	case OpCls, OpRet:
		return m
	case OpSys, OpJp, OpCall:
		return fmt.Sprintf("%s 0x%03X", m, in.NNN)
	case OpSeByte, OpSneByte, OpLdByte, OpAddByte, OpRnd:
		return fmt.Sprintf("%s V%X, 0x%02X", m, in.X, in.KK)
	case OpSeReg, OpSneReg, OpLdReg, OpOr, OpAnd, OpXor, OpAddReg, OpSub, OpShr, OpSubn, OpShl:
		return fmt.Sprintf("%s V%X, V%X", m, in.X, in.Y)
	case OpLdI:
		return fmt.Sprintf("%s I, 0x%03X", m, in.NNN)
	case OpJpV0:
		return fmt.Sprintf("%s V0, 0x%03X", m, in.NNN)
	case OpDrw:
		return fmt.Sprintf("%s V%X, V%X, %d", m, in.X, in.Y, in.N)
	case OpSkp, OpSknp:
		return fmt.Sprintf("%s V%X", m, in.X)
	case OpLdVxDt:
		return fmt.Sprintf("%s V%X, DT", m, in.X)
	case OpLdVxK:
		return fmt.Sprintf("%s V%X, K", m, in.X)
	case OpLdDtVx:
		return fmt.Sprintf("%s DT, V%X", m, in.X)
	case OpLdStVx:
		return fmt.Sprintf("%s ST, V%X", m, in.X)
	case OpAddI:
		return fmt.Sprintf("%s I, V%X", m, in.X)
	case OpLdF:
		return fmt.Sprintf("%s F, V%X", m, in.X)
	case OpLdB:
		return fmt.Sprintf("%s B, V%X", m, in.X)
	case OpStore:
		return fmt.Sprintf("%s [I], V%X", m, in.X)
	case OpLoad:
		return fmt.Sprintf("%s V%X, [I]", m, in.X)
	}

	return m
}
