package chip8

import "fmt"

// Instruction is a decoded 16-bit opcode word. The operand fields overlap;
// each opcode class reads the ones it defines.
type Instruction struct {
	Word uint16 // the full instruction word
	Op   byte   // high nibble, selects the instruction class
	X    byte   // second nibble, Vx register index
	Y    byte   // third nibble, Vy register index
	N    byte   // low nibble
	NN   byte   // low byte
	NNN  uint16 // low 12 bits, an address
}

// Decode splits an instruction word into its operand fields.
func Decode(word uint16) Instruction {
	return Instruction{
		Word: word,
		Op:   byte(word >> 12),
		X:    byte(word >> 8 & 0xF),
		Y:    byte(word >> 4 & 0xF),
		N:    byte(word & 0xF),
		NN:   byte(word & 0xFF),
		NNN:  word & 0xFFF,
	}
}

// String renders the instruction as a conventional mnemonic with operands.
// Patterns outside the documented instruction set render as "??".
func (in Instruction) String() string {
	switch in.Op {
	case 0x0:
		switch in.NN {
		case 0xE0:
			return "CLS"
		case 0xEE:
			return "RET"
		}
		return fmt.Sprintf("SYS    #%03X", in.NNN)
	case 0x1:
		return fmt.Sprintf("JP     #%03X", in.NNN)
	case 0x2:
		return fmt.Sprintf("CALL   #%03X", in.NNN)
	case 0x3:
		return fmt.Sprintf("SE     V%X, #%02X", in.X, in.NN)
	case 0x4:
		return fmt.Sprintf("SNE    V%X, #%02X", in.X, in.NN)
	case 0x5:
		if in.N == 0 {
			return fmt.Sprintf("SE     V%X, V%X", in.X, in.Y)
		}
	case 0x6:
		return fmt.Sprintf("LD     V%X, #%02X", in.X, in.NN)
	case 0x7:
		return fmt.Sprintf("ADD    V%X, #%02X", in.X, in.NN)
	case 0x8:
		switch in.N {
		case 0x0:
			return fmt.Sprintf("LD     V%X, V%X", in.X, in.Y)
		case 0x1:
			return fmt.Sprintf("OR     V%X, V%X", in.X, in.Y)
		case 0x2:
			return fmt.Sprintf("AND    V%X, V%X", in.X, in.Y)
		case 0x3:
			return fmt.Sprintf("XOR    V%X, V%X", in.X, in.Y)
		case 0x4:
			return fmt.Sprintf("ADD    V%X, V%X", in.X, in.Y)
		case 0x5:
			return fmt.Sprintf("SUB    V%X, V%X", in.X, in.Y)
		case 0x6:
			return fmt.Sprintf("SHR    V%X", in.X)
		case 0x7:
			return fmt.Sprintf("SUBN   V%X, V%X", in.X, in.Y)
		case 0xE:
			return fmt.Sprintf("SHL    V%X", in.X)
		}
	case 0x9:
		if in.N == 0 {
			return fmt.Sprintf("SNE    V%X, V%X", in.X, in.Y)
		}
	case 0xA:
		return fmt.Sprintf("LD     I, #%03X", in.NNN)
	case 0xB:
		return fmt.Sprintf("JP     V0, #%03X", in.NNN)
	case 0xC:
		return fmt.Sprintf("RND    V%X, #%02X", in.X, in.NN)
	case 0xD:
		return fmt.Sprintf("DRW    V%X, V%X, %d", in.X, in.Y, in.N)
	case 0xE:
		switch in.NN {
		case 0x9E:
			return fmt.Sprintf("SKP    V%X", in.X)
		case 0xA1:
			return fmt.Sprintf("SKNP   V%X", in.X)
		}
	case 0xF:
		switch in.NN {
		case 0x07:
			return fmt.Sprintf("LD     V%X, DT", in.X)
		case 0x0A:
			return fmt.Sprintf("LD     V%X, K", in.X)
		case 0x15:
			return fmt.Sprintf("LD     DT, V%X", in.X)
		case 0x18:
			return fmt.Sprintf("LD     ST, V%X", in.X)
		case 0x1E:
			return fmt.Sprintf("ADD    I, V%X", in.X)
		case 0x29:
			return fmt.Sprintf("LD     F, V%X", in.X)
		case 0x33:
			return fmt.Sprintf("LD     B, V%X", in.X)
		case 0x55:
			return fmt.Sprintf("LD     [I], V%X", in.X)
		case 0x65:
			return fmt.Sprintf("LD     V%X, [I]", in.X)
		}
	}
	return "??"
}
