package chip8

import (
	"errors"
	"fmt"
)

var (
	ErrMemoryOutOfRange       = errors.New("memory address out of range")
	ErrStackOverflow          = errors.New("call stack overflow")
	ErrStackUnderflow         = errors.New("call stack underflow")
	ErrUnsupportedInstruction = errors.New("unsupported instruction")
	ErrROMTooLarge            = errors.New("rom too large")
)

// Fault is a fatal interpreter error. It records the program counter of the
// instruction that raised it and, when one was fetched, the opcode word.
// Faults halt the scheduler; the underlying kind is matchable with errors.Is.
type Fault struct {
	PC     uint16
	Opcode uint16
	Err    error
}

func (f *Fault) Error() string {
	if f.Opcode != 0 {
		return fmt.Sprintf("%v: opcode %04X at PC=%03X", f.Err, f.Opcode, f.PC)
	}
	return fmt.Sprintf("%v at PC=%03X", f.Err, f.PC)
}

func (f *Fault) Unwrap() error { return f.Err }
