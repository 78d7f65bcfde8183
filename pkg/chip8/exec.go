package chip8

import "fmt"

// Step executes a single instruction: fetch, decode, execute, and advance
// the program counter unless the opcode set it. While the machine is
// waiting on a key it only polls the keypad; the program counter stays on
// the wait instruction and no cycle is consumed.
func (m *Machine) Step() error {
	if m.Waiting {
		if key, ok := m.Keys.TakePress(); ok {
			m.V[m.waitReg] = key
			m.Waiting = false
			m.PC += 2
			m.Cycles++
		}
		return nil
	}

	pc := m.PC
	word, err := m.Memory.ReadWord(pc)
	if err != nil {
		return &Fault{PC: pc, Err: err}
	}

	in := Decode(word)
	m.LastExecuted = fmt.Sprintf("%03X  %04X  %s", pc, word, in)
	m.PC = pc + 2

	if err := m.exec(in); err != nil {
		return &Fault{PC: pc, Opcode: word, Err: err}
	}

	m.Cycles++
	return nil
}

// skip jumps over the next instruction.
func (m *Machine) skip() {
	m.PC += 2
}

func flag(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (m *Machine) exec(in Instruction) error {
	switch in.Op {
	case 0x0:
		switch in.NN {
		case 0xE0:
			m.Display.Clear()
		case 0xEE:
			addr, err := m.pop()
			if err != nil {
				return err
			}
			m.PC = addr
		default:
			// SYS: calls native RCA 1802 code on the original machine.
			// There is no native code to run here, so it is a no-op.
		}
	case 0x1:
		m.PC = in.NNN
	case 0x2:
		if err := m.push(m.PC); err != nil {
			return err
		}
		m.PC = in.NNN
	case 0x3:
		if m.V[in.X] == in.NN {
			m.skip()
		}
	case 0x4:
		if m.V[in.X] != in.NN {
			m.skip()
		}
	case 0x5:
		if in.N != 0 {
			return ErrUnsupportedInstruction
		}
		if m.V[in.X] == m.V[in.Y] {
			m.skip()
		}
	case 0x6:
		m.V[in.X] = in.NN
	case 0x7:
		// The immediate add never touches VF.
		m.V[in.X] += in.NN
	case 0x8:
		return m.execALU(in)
	case 0x9:
		if in.N != 0 {
			return ErrUnsupportedInstruction
		}
		if m.V[in.X] != m.V[in.Y] {
			m.skip()
		}
	case 0xA:
		m.I = in.NNN
	case 0xB:
		m.PC = in.NNN + uint16(m.V[0])
	case 0xC:
		m.V[in.X] = byte(m.rand.Intn(256)) & in.NN
	case 0xD:
		return m.execDraw(in)
	case 0xE:
		switch in.NN {
		case 0x9E:
			if m.Keys.Pressed(m.V[in.X]) {
				m.skip()
			}
		case 0xA1:
			if !m.Keys.Pressed(m.V[in.X]) {
				m.skip()
			}
		default:
			return ErrUnsupportedInstruction
		}
	case 0xF:
		switch in.NN {
		case 0x07:
			m.V[in.X] = m.DT
		case 0x0A:
			// Block until a key press transition arrives after this
			// point; presses that predate the wait do not count. The
			// program counter rolls back onto this instruction; timers
			// keep decaying while the machine waits.
			m.waitReg = in.X
			m.Waiting = true
			m.Keys.AwaitPress()
			m.PC -= 2
		case 0x15:
			m.DT = m.V[in.X]
		case 0x18:
			m.ST = m.V[in.X]
		case 0x1E:
			// No VF side effect. An I past 0xFFF faults on its next
			// memory use instead of wrapping.
			m.I += uint16(m.V[in.X])
		case 0x29:
			m.I = FontBase + uint16(m.V[in.X]&0xF)*5
		case 0x33:
			v := m.V[in.X]
			for i, d := range [3]byte{v / 100, v / 10 % 10, v % 10} {
				if err := m.Memory.WriteByte(m.I+uint16(i), d); err != nil {
					return err
				}
			}
		case 0x55:
			// V0 through VX inclusive; I is left unchanged.
			for i := byte(0); i <= in.X; i++ {
				if err := m.Memory.WriteByte(m.I+uint16(i), m.V[i]); err != nil {
					return err
				}
			}
		case 0x65:
			for i := byte(0); i <= in.X; i++ {
				b, err := m.Memory.ReadByte(m.I + uint16(i))
				if err != nil {
					return err
				}
				m.V[i] = b
			}
		default:
			return ErrUnsupportedInstruction
		}
	}
	return nil
}

// execALU handles the 8XYN register-register operations. The VF flag is
// always written after the result so the flag survives when X or Y is F.
// Shifts operate on VX in place and ignore VY (CHIP-48 convention).
func (m *Machine) execALU(in Instruction) error {
	x, y := in.X, in.Y

	switch in.N {
	case 0x0:
		m.V[x] = m.V[y]
	case 0x1:
		m.V[x] |= m.V[y]
	case 0x2:
		m.V[x] &= m.V[y]
	case 0x3:
		m.V[x] ^= m.V[y]
	case 0x4:
		sum := uint16(m.V[x]) + uint16(m.V[y])
		m.V[x] = byte(sum)
		m.V[0xF] = flag(sum > 0xFF)
	case 0x5:
		vx, vy := m.V[x], m.V[y]
		m.V[x] = vx - vy
		m.V[0xF] = flag(vx >= vy) // inverted borrow: 1 when no borrow
	case 0x6:
		vx := m.V[x]
		m.V[x] = vx >> 1
		m.V[0xF] = vx & 1
	case 0x7:
		vx, vy := m.V[x], m.V[y]
		m.V[x] = vy - vx
		m.V[0xF] = flag(vy >= vx)
	case 0xE:
		vx := m.V[x]
		m.V[x] = vx << 1
		m.V[0xF] = vx >> 7
	default:
		return ErrUnsupportedInstruction
	}
	return nil
}

// execDraw XORs the n-row sprite at I into the framebuffer at (VX, VY) and
// sets VF to the collision flag.
func (m *Machine) execDraw(in Instruction) error {
	n := uint16(in.N)
	if int(m.I)+int(n) > MemorySize {
		return fmt.Errorf("sprite at %04X, %d rows: %w", m.I, n, ErrMemoryOutOfRange)
	}

	rows := m.Memory[m.I : m.I+n]
	m.V[0xF] = flag(m.Display.DrawSprite(m.V[in.X], m.V[in.Y], rows))
	return nil
}
