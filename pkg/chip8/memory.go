package chip8

import "fmt"

const (
	// MemorySize is the full 12-bit address space.
	MemorySize = 0x1000

	// ProgramStart is where loaded programs begin executing. Addresses
	// below it are reserved for the interpreter and the font sprites.
	ProgramStart = 0x200
)

// Memory is the flat 4 KiB address space. Every access is bounds-checked;
// an out-of-range address is a fatal fault, never a silent wrap. The only
// wrapping the machine performs is sprite-draw coordinate wrap on the display.
type Memory [MemorySize]byte

// ReadByte returns the byte at addr.
func (m *Memory) ReadByte(addr uint16) (byte, error) {
	if addr >= MemorySize {
		return 0, fmt.Errorf("read %04X: %w", addr, ErrMemoryOutOfRange)
	}
	return m[addr], nil
}

// WriteByte stores v at addr.
func (m *Memory) WriteByte(addr uint16, v byte) error {
	if addr >= MemorySize {
		return fmt.Errorf("write %04X: %w", addr, ErrMemoryOutOfRange)
	}
	m[addr] = v
	return nil
}

// ReadWord returns the big-endian 16-bit word at addr and addr+1. This is
// the instruction fetch; a program counter that runs past 0xFFF faults here.
func (m *Memory) ReadWord(addr uint16) (uint16, error) {
	if addr+1 >= MemorySize || addr+1 < addr {
		return 0, fmt.Errorf("fetch %04X: %w", addr, ErrMemoryOutOfRange)
	}
	return uint16(m[addr])<<8 | uint16(m[addr+1]), nil
}

// Load copies data into memory starting at addr. It fails before touching
// memory if the data would extend past the end of the address space.
func (m *Memory) Load(data []byte, addr uint16) error {
	if int(addr)+len(data) > MemorySize {
		return fmt.Errorf("%d bytes at %04X: %w", len(data), addr, ErrROMTooLarge)
	}
	copy(m[addr:], data)
	return nil
}
