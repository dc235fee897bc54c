package chip8

import (
	"errors"
	"fmt"
)

var (
	ErrRomTooLarge         = errors.New("the program does not fit into memory")
	ErrUnknownInstruction  = errors.New("unknown instruction")
	ErrStackOverflow       = errors.New("stack overflow: try to push to a full stack")
	ErrStackUnderflow      = errors.New("stack underflow: try to pop an empty stack")
	ErrAddressOutOfRange   = errors.New("address out of range")
	ErrKeyOutOfRange       = errors.New("key out of range")
	ErrRandomSourceFailure = errors.New("random source failure")
)

// RomTooLargeError is returned by Load when the ROM exceeds MaxRomSize.
type RomTooLargeError struct {
	Size int
	Max  int
}

func (err RomTooLargeError) Error() string {
	return fmt.Sprintf("rom of %d bytes exceeds the %d bytes of program memory", err.Size, err.Max)
}

func (err RomTooLargeError) Unwrap() error {
	return ErrRomTooLarge
}

// ErrOpCodeUnknown is returned when an opcode matches no instruction form.
type ErrOpCodeUnknown struct {
	OpCode uint16
	Pc     uint16
}

func (err ErrOpCodeUnknown) Error() string {
	return fmt.Sprintf("unknown opcode=%04X at PC=%03X", err.OpCode, err.Pc)
}

func (err ErrOpCodeUnknown) Unwrap() error {
	return ErrUnknownInstruction
}

// StackError wraps ErrStackOverflow or ErrStackUnderflow with the faulting PC.
type StackError struct {
	Pc  uint16
	Err error
}

func (err StackError) Error() string {
	return fmt.Sprintf("%v at PC=%03X", err.Err, err.Pc)
}

func (err StackError) Unwrap() error {
	return err.Err
}

// AddressError is returned when an instruction touches memory outside [0, 0xFFF].
type AddressError struct {
	Address uint32
	Pc      uint16
}

func (err AddressError) Error() string {
	return fmt.Sprintf("address %04X out of range at PC=%03X", err.Address, err.Pc)
}

func (err AddressError) Unwrap() error {
	return ErrAddressOutOfRange
}
