package chip8

import (
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"slices"
)

const (
	// StackDepth is the maximum number of nested subroutine calls.
	StackDepth = 16
	// NumRegisters is the number of general purpose registers V0 to VF.
	NumRegisters = 16
	// TimerHz is the rate at which the host must call TickTimers.
	TimerHz = 60
)

// MachineRoutineInterpreter runs the machine code routine called by a 0nnn instruction.
type MachineRoutineInterpreter func(addr uint16, m *Machine) error

type MachineConfig struct {
	// FontAddress is where the hex font is stored, it must end below 0x200.
	FontAddress uint16
	Quirks      Quirks
	// Random feeds the Cxkk instruction.
	Random io.Reader
	// MachineRoutineInterpreter is called by 0nnn, nil makes 0nnn a no-op.
	MachineRoutineInterpreter MachineRoutineInterpreter
}

type MachineConfigCb func(config *MachineConfig)

// Machine is the complete state of one CHIP-8 interpreter.
//
// A Machine is not safe for concurrent use: Step, TickTimers and SetKey
// must be serialized by the host.
type Machine struct {
	memory Memory
	// V 8-bit registers
	v [NumRegisters]byte
	// I 16-bit register (12-bit usable)
	i uint16
	// Program counter
	pc uint16
	// Stack pointer
	sp byte
	// Stack
	stack [StackDepth]uint16
	// Delay timer register
	dt byte
	// Sound timer register
	st byte

	screen Framebuffer
	keypad Keypad

	// Fx0A leaves the machine waiting for a key to be stored in V[keyRegister]
	awaitingKey bool
	keyRegister byte

	// image of the last loaded program, used by Reset
	program []byte

	fontAddress               uint16
	quirks                    Quirks
	random                    io.Reader
	machineRoutineInterpreter MachineRoutineInterpreter

	cycles uint64
	draws  uint64

	lastError error
}

// State is a copy of the registers of the machine.
type State struct {
	V           [NumRegisters]byte `json:"v"`
	I           uint16             `json:"i"`
	Pc          uint16             `json:"pc"`
	Sp          byte               `json:"sp"`
	Stack       [StackDepth]uint16 `json:"stack"`
	Dt          byte               `json:"dt"`
	St          byte               `json:"st"`
	AwaitingKey bool               `json:"awaitingKey"`
	KeyRegister byte               `json:"keyRegister"`
	Cycles      uint64             `json:"cycles"`
}

// NewMachine creates a machine with zeroed memory and the font installed.
// The program counter points at StartOfProgram.
func NewMachine(configs ...MachineConfigCb) *Machine {
	config := &MachineConfig{
		FontAddress: DefaultFontAddress,
		Quirks:      0,
		Random:      rand.Reader,
	}
	for _, cb := range configs {
		cb(config)
	}

	if !ValidFontAddress(config.FontAddress) {
		slog.Warn("Font does not fit below the program area, using the default address",
			slog.Int("fontAddress", int(config.FontAddress)),
			slog.Int("default", DefaultFontAddress))
		config.FontAddress = DefaultFontAddress
	}
	if config.Random == nil {
		config.Random = rand.Reader
	}

	m := &Machine{
		fontAddress:               config.FontAddress,
		quirks:                    config.Quirks,
		random:                    config.Random,
		machineRoutineInterpreter: config.MachineRoutineInterpreter,
	}
	m.memory.loadFont(m.fontAddress)
	m.reset()

	return m
}

// Load copies the program at StartOfProgram and resets the registers,
// stack, timers and screen. The font region is kept.
// A program larger than MaxRomSize is rejected and the machine is left untouched.
func (m *Machine) Load(program []byte) error {
	if len(program) > MaxRomSize {
		return RomTooLargeError{Size: len(program), Max: MaxRomSize}
	}

	m.program = slices.Clone(program)
	m.memory.loadProgram(m.program)
	m.reset()

	return nil
}

// Reset restarts the last loaded program from a pristine copy of its image.
func (m *Machine) Reset() {
	m.memory.loadFont(m.fontAddress)
	m.memory.loadProgram(m.program)
	m.reset()
}

func (m *Machine) reset() {
	m.v = [NumRegisters]byte{}
	m.i = 0
	m.pc = StartOfProgram
	m.sp = 0
	m.stack = [StackDepth]uint16{}
	m.dt = 0
	m.st = 0
	m.screen = Framebuffer{}
	m.awaitingKey = false
	m.keyRegister = 0
	m.cycles = 0
	m.lastError = nil

	// the screen was cleared
	m.draws++
}

// Step executes one instruction.
//
// A fatal error (unknown instruction, stack overflow or underflow, address
// out of range) leaves the program counter on the faulting instruction and
// is returned by every following call until Load or Reset.
func (m *Machine) Step() error {
	if m.lastError != nil {
		return m.lastError
	}

	if m.awaitingKey {
		if k, pressed := m.keypad.FirstPressed(); pressed {
			m.v[m.keyRegister] = k
			m.awaitingKey = false
			m.pc += 2
			m.cycles++
		}
		return nil
	}

	pc := m.pc
	opCode, err := m.fetch()
	if err != nil {
		return m.fail(pc, err)
	}

	in, err := Decode(opCode)
	if err != nil {
		return m.fail(pc, ErrOpCodeUnknown{OpCode: opCode, Pc: pc})
	}

	m.pc += 2
	if err := m.execute(in, pc); err != nil {
		return m.fail(pc, err)
	}
	m.cycles++

	return nil
}

func (m *Machine) fetch() (uint16, error) {
	b, ok := m.memory.span(m.pc, 2)
	if !ok {
		return 0, AddressError{Address: firstOutOfRange(m.pc), Pc: m.pc}
	}

	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func (m *Machine) fail(pc uint16, err error) error {
	m.pc = pc
	m.lastError = err
	return err
}

// TickTimers decrements the delay and sound timers, stopping at zero.
// The host calls it at TimerHz regardless of the instruction rate.
func (m *Machine) TickTimers() {
	if m.dt > 0 {
		m.dt--
	}
	if m.st > 0 {
		m.st--
	}
}

// SetKey records whether keypad key k is held down.
func (m *Machine) SetKey(k byte, pressed bool) error {
	if k >= NumKeys {
		return fmt.Errorf("%w: %X", ErrKeyOutOfRange, k)
	}
	m.keypad[k] = pressed
	return nil
}

// Key reports whether keypad key k is held down.
func (m *Machine) Key(k byte) bool {
	return m.keypad.IsPressed(k)
}

func (m *Machine) Keypad() Keypad {
	return m.keypad
}

// Framebuffer returns a copy of the screen.
func (m *Machine) Framebuffer() Framebuffer {
	return m.screen
}

// DrawCount increases every time the screen is modified.
func (m *Machine) DrawCount() uint64 {
	return m.draws
}

func (m *Machine) IsSoundActive() bool {
	return m.st > 0
}

func (m *Machine) IsDelayTimerActive() bool {
	return m.dt > 0
}

func (m *Machine) DelayTimer() byte {
	return m.dt
}

func (m *Machine) SoundTimer() byte {
	return m.st
}

// AwaitingKey reports whether the machine is blocked on Fx0A and the register it will write.
func (m *Machine) AwaitingKey() (byte, bool) {
	return m.keyRegister, m.awaitingKey
}

// Err returns the fatal error that halted the machine, if any.
func (m *Machine) Err() error {
	return m.lastError
}

func (m *Machine) Cycles() uint64 {
	return m.cycles
}

func (m *Machine) Pc() uint16 {
	return m.pc
}

func (m *Machine) V(x byte) byte {
	return m.v[x&0xF]
}

func (m *Machine) I() uint16 {
	return m.i
}

func (m *Machine) FontAddress() uint16 {
	return m.fontAddress
}

func (m *Machine) Quirks() Quirks {
	return m.quirks
}

// Memory returns a copy of the address space.
func (m *Machine) Memory() Memory {
	return m.memory
}

// Peek reads one byte of memory. Addresses past the end read as zero.
func (m *Machine) Peek(addr uint16) byte {
	b, _ := m.memory.read(addr)
	return b
}

func (m *Machine) State() State {
	return State{
		V:           m.v,
		I:           m.i,
		Pc:          m.pc,
		Sp:          m.sp,
		Stack:       m.stack,
		Dt:          m.dt,
		St:          m.st,
		AwaitingKey: m.awaitingKey,
		KeyRegister: m.keyRegister,
		Cycles:      m.cycles,
	}
}

// OpCodeAt reads the 16-bit word stored at addr.
func (m *Machine) OpCodeAt(addr uint16) (uint16, bool) {
	b, ok := m.memory.span(addr, 2)
	if !ok {
		return 0, false
	}
	return uint16(b[0])<<8 | uint16(b[1]), true
}

// Disassemble renders the instruction stored at addr, e.g. "0200: 6A02  LD VA, 0x02".
// Words that are not instructions are rendered as data.
func (m *Machine) Disassemble(addr uint16) string {
	opCode, ok := m.OpCodeAt(addr)
	if !ok {
		return fmt.Sprintf("%04X: ----", addr)
	}

	in, err := Decode(opCode)
	if err != nil {
		return fmt.Sprintf("%04X: %04X  DW 0x%04X", addr, opCode, opCode)
	}

	return fmt.Sprintf("%04X: %04X  %s", addr, opCode, in)
}

func firstOutOfRange(addr uint16) uint32 {
	return max(uint32(addr), MemorySize)
}

func bool2byte(b bool) byte {
	if b {
		return 1
	}

	return 0
}
