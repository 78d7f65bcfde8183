package chip8

import (
	"fmt"
	"math/rand"
	"time"
)

// StackDepth is the maximum call depth.
const StackDepth = 16

// Machine is the whole interpreter state: memory, registers, call stack,
// timers, framebuffer and keypad. It is an explicitly owned aggregate; all
// mutation happens on the goroutine that calls Step, with the keypad as the
// only externally written component.
type Machine struct {
	Memory  Memory
	Display Display
	Keys    *Keypad

	V  [16]byte // general registers, VF doubles as the flag register
	I  uint16   // index register
	PC uint16
	SP byte
	Stack [StackDepth]uint16

	// DT and ST are the delay and sound timers. They decrement toward zero
	// at 60 Hz under TickTimers, independent of instruction throughput.
	DT byte
	ST byte

	// Waiting is set while the blocking key-wait instruction holds the
	// program counter. Timers keep decaying while it is set.
	Waiting bool
	waitReg byte

	// Cycles counts executed instructions since the last reset.
	Cycles int64

	// LastExecuted is the human-readable summary of the most recently
	// executed instruction, e.g. "200  6A02  LD     VA, #02".
	LastExecuted string

	rom  []byte // pristine program image, restored on Reset
	rand *rand.Rand
}

// New returns a machine with the font installed and no program loaded.
func New() *Machine {
	m := &Machine{
		Keys: NewKeypad(),
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	m.Reset()
	return m
}

// LoadROM installs program as the machine's ROM and resets. A program that
// does not fit between the load address and the end of memory is rejected
// before any instruction executes.
func (m *Machine) LoadROM(program []byte) error {
	if ProgramStart+len(program) > MemorySize {
		return fmt.Errorf("%d bytes: %w", len(program), ErrROMTooLarge)
	}

	m.rom = append([]byte(nil), program...)
	m.Reset()
	return nil
}

// Reset restores the machine to its power-on state with the pristine ROM
// image reloaded: font and program copied in, PC at the program start,
// registers, timers, stack, display and keypad all cleared.
func (m *Machine) Reset() {
	m.Memory = Memory{}
	copy(m.Memory[FontBase:], fontSprites[:])
	copy(m.Memory[ProgramStart:], m.rom)

	m.Display.Clear()
	m.Keys.Reset()

	m.V = [16]byte{}
	m.I = 0
	m.PC = ProgramStart
	m.SP = 0
	m.Stack = [StackDepth]uint16{}
	m.DT = 0
	m.ST = 0
	m.Waiting = false
	m.waitReg = 0
	m.Cycles = 0
	m.LastExecuted = ""
}

// TickTimers decrements both timers by one, clamping at zero. The scheduler
// calls this at the fixed 60 Hz cadence.
func (m *Machine) TickTimers() {
	if m.DT > 0 {
		m.DT--
	}
	if m.ST > 0 {
		m.ST--
	}
}

// SoundActive reports whether the sound timer is running. The audio
// collaborator turns this into an actual tone; the core only exposes the
// boolean signal.
func (m *Machine) SoundActive() bool {
	return m.ST > 0
}

func (m *Machine) push(addr uint16) error {
	if int(m.SP) >= StackDepth {
		return ErrStackOverflow
	}
	m.Stack[m.SP] = addr
	m.SP++
	return nil
}

func (m *Machine) pop() (uint16, error) {
	if m.SP == 0 {
		return 0, ErrStackUnderflow
	}
	m.SP--
	return m.Stack[m.SP], nil
}

// Disassemble renders the instruction at addr as "addr  word  mnemonic",
// or "" when addr is out of range. Used by the debug panel.
func (m *Machine) Disassemble(addr uint16) string {
	word, err := m.Memory.ReadWord(addr)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%03X  %04X  %s", addr, word, Decode(word))
}

// Snapshot is a read-only copy of the inspectable machine state.
type Snapshot struct {
	V  [16]byte
	I  uint16
	PC uint16
	SP byte
	Stack []uint16 // live stack entries, oldest first

	DelayTimer byte
	SoundTimer byte

	Waiting      bool
	Cycles       int64
	LastExecuted string
}

// Snapshot captures the current register, stack and timer state for
// inspection. It copies everything; mutating the result has no effect on
// the machine.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		V:            m.V,
		I:            m.I,
		PC:           m.PC,
		SP:           m.SP,
		Stack:        append([]uint16(nil), m.Stack[:m.SP]...),
		DelayTimer:   m.DT,
		SoundTimer:   m.ST,
		Waiting:      m.Waiting,
		Cycles:       m.Cycles,
		LastExecuted: m.LastExecuted,
	}
}
