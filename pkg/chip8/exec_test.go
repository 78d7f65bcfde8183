package chip8

import (
	"errors"
	"math/rand"
	"testing"
)

func TestLoadAndAdd(t *testing.T) {
	// V10=2, V11=3, V10 += V11.
	m := loadMachine(t, 0x6A02, 0x6B03, 0x8AB4)
	stepN(t, m, 3)

	if m.V[0xA] != 5 {
		t.Errorf("VA: expected 5, got %d", m.V[0xA])
	}
	if m.V[0xF] != 0 {
		t.Errorf("VF: expected 0 (no carry), got %d", m.V[0xF])
	}
}

func TestAddCarry(t *testing.T) {
	m := loadMachine(t, 0x6AFF, 0x6B02, 0x8AB4)
	stepN(t, m, 3)

	if m.V[0xA] != 1 {
		t.Errorf("VA: expected 1 (0xFF+2 mod 256), got %d", m.V[0xA])
	}
	if m.V[0xF] != 1 {
		t.Errorf("VF: expected 1 (carry), got %d", m.V[0xF])
	}
}

func TestSubInvertedBorrow(t *testing.T) {
	// 7 - 3: no borrow, VF=1.
	m := loadMachine(t, 0x6107, 0x6203, 0x8125)
	stepN(t, m, 3)
	if m.V[1] != 4 || m.V[0xF] != 1 {
		t.Errorf("7-3: expected V1=4 VF=1, got V1=%d VF=%d", m.V[1], m.V[0xF])
	}

	// 3 - 7: borrow, VF=0, result wraps mod 256.
	m = loadMachine(t, 0x6103, 0x6207, 0x8125)
	stepN(t, m, 3)
	if m.V[1] != 252 || m.V[0xF] != 0 {
		t.Errorf("3-7: expected V1=252 VF=0, got V1=%d VF=%d", m.V[1], m.V[0xF])
	}
}

func TestSubnInvertedBorrow(t *testing.T) {
	// V1=3, V2=7: VY - VX = 4, no borrow, VF=1.
	m := loadMachine(t, 0x6103, 0x6207, 0x8127)
	stepN(t, m, 3)
	if m.V[1] != 4 || m.V[0xF] != 1 {
		t.Errorf("SUBN 7-3: expected V1=4 VF=1, got V1=%d VF=%d", m.V[1], m.V[0xF])
	}

	m = loadMachine(t, 0x6107, 0x6203, 0x8127)
	stepN(t, m, 3)
	if m.V[1] != 252 || m.V[0xF] != 0 {
		t.Errorf("SUBN 3-7: expected V1=252 VF=0, got V1=%d VF=%d", m.V[1], m.V[0xF])
	}
}

func TestLogicalOps(t *testing.T) {
	m := loadMachine(t, 0x61F0, 0x620F, 0x8121)
	stepN(t, m, 3)
	if m.V[1] != 0xFF {
		t.Errorf("OR: expected 0xFF, got 0x%02X", m.V[1])
	}

	m = loadMachine(t, 0x61FF, 0x620F, 0x8122)
	stepN(t, m, 3)
	if m.V[1] != 0x0F {
		t.Errorf("AND: expected 0x0F, got 0x%02X", m.V[1])
	}

	m = loadMachine(t, 0x61FF, 0x620F, 0x8123)
	stepN(t, m, 3)
	if m.V[1] != 0xF0 {
		t.Errorf("XOR: expected 0xF0, got 0x%02X", m.V[1])
	}

	m = loadMachine(t, 0x6100, 0x622A, 0x8120)
	stepN(t, m, 3)
	if m.V[1] != 0x2A {
		t.Errorf("LD VX,VY: expected 0x2A, got 0x%02X", m.V[1])
	}
}

func TestShiftsUseVX(t *testing.T) {
	// SHR shifts VX in place; VY is loaded with junk and must be ignored.
	m := loadMachine(t, 0x610F, 0x62F0, 0x8126)
	stepN(t, m, 3)
	if m.V[1] != 0x07 || m.V[0xF] != 1 {
		t.Errorf("SHR: expected V1=0x07 VF=1, got V1=0x%02X VF=%d", m.V[1], m.V[0xF])
	}

	m = loadMachine(t, 0x6181, 0x62F0, 0x812E)
	stepN(t, m, 3)
	if m.V[1] != 0x02 || m.V[0xF] != 1 {
		t.Errorf("SHL: expected V1=0x02 VF=1, got V1=0x%02X VF=%d", m.V[1], m.V[0xF])
	}

	// MSB/LSB clear: VF=0.
	m = loadMachine(t, 0x6104, 0x8126)
	stepN(t, m, 2)
	if m.V[1] != 0x02 || m.V[0xF] != 0 {
		t.Errorf("SHR even: expected V1=0x02 VF=0, got V1=0x%02X VF=%d", m.V[1], m.V[0xF])
	}
}

func TestImmediateAddNoFlag(t *testing.T) {
	// 7XNN wraps without touching VF.
	m := loadMachine(t, 0x61FF, 0x7102)
	stepN(t, m, 2)
	if m.V[1] != 1 {
		t.Errorf("ADD imm: expected V1=1, got %d", m.V[1])
	}
	if m.V[0xF] != 0 {
		t.Errorf("ADD imm: expected VF untouched (0), got %d", m.V[0xF])
	}
}

func TestSkips(t *testing.T) {
	tests := []struct {
		name   string
		words  []uint16
		steps  int
		wantPC uint16
	}{
		{"SE imm taken", []uint16{0x6105, 0x3105}, 2, 0x206},
		{"SE imm not taken", []uint16{0x6105, 0x3106}, 2, 0x204},
		{"SNE imm taken", []uint16{0x6105, 0x4106}, 2, 0x206},
		{"SNE imm not taken", []uint16{0x6105, 0x4105}, 2, 0x204},
		{"SE reg taken", []uint16{0x6105, 0x6205, 0x5120}, 3, 0x208},
		{"SE reg not taken", []uint16{0x6105, 0x6206, 0x5120}, 3, 0x206},
		{"SNE reg taken", []uint16{0x6105, 0x6206, 0x9120}, 3, 0x208},
		{"SNE reg not taken", []uint16{0x6105, 0x6205, 0x9120}, 3, 0x206},
	}

	for _, tt := range tests {
		m := loadMachine(t, tt.words...)
		stepN(t, m, tt.steps)
		if m.PC != tt.wantPC {
			t.Errorf("%s: expected PC=0x%03X, got 0x%03X", tt.name, tt.wantPC, m.PC)
		}
	}
}

func TestJumps(t *testing.T) {
	m := loadMachine(t, 0x1300)
	stepN(t, m, 1)
	if m.PC != 0x300 {
		t.Errorf("JP: expected PC=0x300, got 0x%03X", m.PC)
	}

	// JP V0: target is NNN + V0.
	m = loadMachine(t, 0x6010, 0xB300)
	stepN(t, m, 2)
	if m.PC != 0x310 {
		t.Errorf("JP V0: expected PC=0x310, got 0x%03X", m.PC)
	}
}

func TestCallRet(t *testing.T) {
	// CALL #206, then LD at the subroutine, RET back to 0x202.
	m := loadMachine(t, 0x2206, 0x0000, 0x0000, 0x6105, 0x00EE)
	stepN(t, m, 1)
	if m.PC != 0x206 || m.SP != 1 || m.Stack[0] != 0x202 {
		t.Fatalf("CALL: expected PC=0x206 stack=[0x202], got PC=0x%03X SP=%d", m.PC, m.SP)
	}

	stepN(t, m, 2) // LD V1, then RET
	if m.PC != 0x202 {
		t.Errorf("RET: expected PC=0x202, got 0x%03X", m.PC)
	}
	if m.SP != 0 {
		t.Errorf("RET: expected empty stack, got SP=%d", m.SP)
	}
	if m.V[1] != 5 {
		t.Errorf("subroutine body not executed")
	}
}

func TestStackOverflow(t *testing.T) {
	// A subroutine that calls itself overflows on the 17th call.
	m := loadMachine(t, 0x2200)

	for i := 0; i < StackDepth; i++ {
		if err := m.Step(); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i+1, err)
		}
	}

	err := m.Step()
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("17th call: expected ErrStackOverflow, got %v", err)
	}

	var f *Fault
	if !errors.As(err, &f) {
		t.Fatalf("expected a *Fault, got %T", err)
	}
	if f.PC != 0x200 || f.Opcode != 0x2200 {
		t.Errorf("fault: expected PC=0x200 opcode=0x2200, got PC=0x%03X opcode=0x%04X", f.PC, f.Opcode)
	}
}

func TestStackUnderflow(t *testing.T) {
	m := loadMachine(t, 0x00EE)

	err := m.Step()
	if !errors.Is(err, ErrStackUnderflow) {
		t.Errorf("RET on empty stack: expected ErrStackUnderflow, got %v", err)
	}
}

func TestStackRoundTrip(t *testing.T) {
	m := New()

	if err := m.push(0x234); err != nil {
		t.Fatalf("push: %v", err)
	}
	addr, err := m.pop()
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if addr != 0x234 {
		t.Errorf("round trip: expected 0x234, got 0x%03X", addr)
	}
}

func TestUnsupportedInstruction(t *testing.T) {
	for _, word := range []uint16{0xFFFF, 0x5121, 0x8008, 0x9003, 0xE100} {
		m := loadMachine(t, word)
		err := m.Step()
		if !errors.Is(err, ErrUnsupportedInstruction) {
			t.Errorf("%04X: expected ErrUnsupportedInstruction, got %v", word, err)
		}
	}
}

func TestSysIsNoOp(t *testing.T) {
	m := loadMachine(t, 0x0123)
	stepN(t, m, 1)
	if m.PC != 0x202 {
		t.Errorf("SYS: expected PC=0x202, got 0x%03X", m.PC)
	}
}

func TestRandomMasked(t *testing.T) {
	m := loadMachine(t, 0xC13F, 0xC200)
	m.rand = rand.New(rand.NewSource(1))
	stepN(t, m, 2)

	if m.V[1]&^byte(0x3F) != 0 {
		t.Errorf("RND: expected value masked to 0x3F, got 0x%02X", m.V[1])
	}
	if m.V[2] != 0 {
		t.Errorf("RND with zero mask: expected 0, got 0x%02X", m.V[2])
	}
}

func TestLoadIndex(t *testing.T) {
	m := loadMachine(t, 0xA300)
	stepN(t, m, 1)
	if m.I != 0x300 {
		t.Errorf("LD I: expected 0x300, got 0x%03X", m.I)
	}
}

func TestAddIndexNoFlag(t *testing.T) {
	m := loadMachine(t, 0xA300, 0x610A, 0xF11E)
	m.V[0xF] = 0
	stepN(t, m, 3)

	if m.I != 0x30A {
		t.Errorf("ADD I: expected 0x30A, got 0x%03X", m.I)
	}
	if m.V[0xF] != 0 {
		t.Errorf("ADD I: expected VF untouched, got %d", m.V[0xF])
	}
}

func TestFontAddress(t *testing.T) {
	m := loadMachine(t, 0x6107, 0xF129)
	stepN(t, m, 2)

	want := uint16(FontBase + 7*5)
	if m.I != want {
		t.Fatalf("LD F: expected I=0x%03X, got 0x%03X", want, m.I)
	}
	if m.Memory[m.I] != 0xF0 {
		t.Errorf("LD F: expected digit 7 sprite at I, got 0x%02X", m.Memory[m.I])
	}
}

func TestBCD(t *testing.T) {
	// V1 = 155 -> memory[I..I+2] = 1, 5, 5.
	m := loadMachine(t, 0x619B, 0xA300, 0xF133)
	stepN(t, m, 3)

	if m.Memory[0x300] != 1 || m.Memory[0x301] != 5 || m.Memory[0x302] != 5 {
		t.Errorf("BCD(155): expected 1,5,5, got %d,%d,%d",
			m.Memory[0x300], m.Memory[0x301], m.Memory[0x302])
	}
}

func TestStoreLoadRegistersInclusive(t *testing.T) {
	m := loadMachine(t, 0x6011, 0x6122, 0x6233, 0xA300, 0xF255)
	stepN(t, m, 5)

	// V0 through V2 inclusive were stored; V3's slot stays untouched.
	if m.Memory[0x300] != 0x11 || m.Memory[0x301] != 0x22 || m.Memory[0x302] != 0x33 {
		t.Errorf("store: expected 11,22,33, got %02X,%02X,%02X",
			m.Memory[0x300], m.Memory[0x301], m.Memory[0x302])
	}
	if m.Memory[0x303] != 0 {
		t.Errorf("store: wrote past VX")
	}
	if m.I != 0x300 {
		t.Errorf("store: expected I unchanged at 0x300, got 0x%03X", m.I)
	}

	// Load them back into a clean register file.
	m2 := loadMachine(t, 0xA300, 0xF265)
	m2.Memory[0x300] = 0x11
	m2.Memory[0x301] = 0x22
	m2.Memory[0x302] = 0x33
	stepN(t, m2, 2)

	if m2.V[0] != 0x11 || m2.V[1] != 0x22 || m2.V[2] != 0x33 {
		t.Errorf("load: expected 11,22,33, got %02X,%02X,%02X", m2.V[0], m2.V[1], m2.V[2])
	}
	if m2.V[3] != 0 {
		t.Errorf("load: read past VX")
	}
	if m2.I != 0x300 {
		t.Errorf("load: expected I unchanged at 0x300, got 0x%03X", m2.I)
	}
}

func TestDrawInstruction(t *testing.T) {
	// Draw the digit 0 sprite at (0, 0).
	m := loadMachine(t, 0xA050, 0x6100, 0x6200, 0xD125)
	stepN(t, m, 4)

	if m.V[0xF] != 0 {
		t.Errorf("first draw: expected VF=0, got %d", m.V[0xF])
	}
	for _, x := range []int{0, 1, 2, 3} {
		if !m.Display.Pixel(x, 0) {
			t.Errorf("first draw: pixel (%d,0) not set", x)
		}
	}

	// Drawing the same sprite again erases it and reports the collision.
	m.PC = 0x206
	stepN(t, m, 1)
	if m.V[0xF] != 1 {
		t.Errorf("second draw: expected VF=1, got %d", m.V[0xF])
	}
	if m.Display.Pixel(0, 0) {
		t.Errorf("second draw: display not returned to empty")
	}
}

func TestDrawOutOfRangeSpriteFaults(t *testing.T) {
	// Two sprite rows starting at 0xFFF run past the end of memory.
	m := loadMachine(t, 0xAFFF, 0xD112)
	stepN(t, m, 1)

	err := m.Step()
	if !errors.Is(err, ErrMemoryOutOfRange) {
		t.Errorf("expected ErrMemoryOutOfRange, got %v", err)
	}
}

func TestSkipIfKey(t *testing.T) {
	m := loadMachine(t, 0x6105, 0xE19E)
	m.Keys.SetKey(5, true)
	stepN(t, m, 2)
	if m.PC != 0x206 {
		t.Errorf("SKP with key held: expected PC=0x206, got 0x%03X", m.PC)
	}

	m = loadMachine(t, 0x6105, 0xE19E)
	stepN(t, m, 2)
	if m.PC != 0x204 {
		t.Errorf("SKP without key: expected PC=0x204, got 0x%03X", m.PC)
	}

	m = loadMachine(t, 0x6105, 0xE1A1)
	stepN(t, m, 2)
	if m.PC != 0x206 {
		t.Errorf("SKNP without key: expected PC=0x206, got 0x%03X", m.PC)
	}
}

func TestTimerInstructions(t *testing.T) {
	m := loadMachine(t, 0x6130, 0xF115, 0xF118, 0xF207)
	stepN(t, m, 4)

	if m.DT != 0x30 || m.ST != 0x30 {
		t.Errorf("timer set: expected DT=ST=0x30, got DT=0x%02X ST=0x%02X", m.DT, m.ST)
	}
	if m.V[2] != 0x30 {
		t.Errorf("timer read: expected V2=0x30, got 0x%02X", m.V[2])
	}
}

func TestWaitForKey(t *testing.T) {
	m := loadMachine(t, 0xF10A)

	stepN(t, m, 1)
	if !m.Waiting {
		t.Fatalf("expected machine waiting after LD V1, K")
	}
	if m.PC != 0x200 {
		t.Fatalf("wait: expected PC held at 0x200, got 0x%03X", m.PC)
	}

	// No key: stepping makes no progress.
	stepN(t, m, 3)
	if m.PC != 0x200 || !m.Waiting {
		t.Fatalf("wait without key: PC moved to 0x%03X", m.PC)
	}

	// A press transition releases the wait and lands in V1.
	m.Keys.SetKey(0xB, true)
	stepN(t, m, 1)
	if m.Waiting {
		t.Fatalf("expected wait released after key press")
	}
	if m.V[1] != 0xB {
		t.Errorf("expected V1=0xB, got 0x%02X", m.V[1])
	}
	if m.PC != 0x202 {
		t.Errorf("expected PC=0x202 after wait, got 0x%03X", m.PC)
	}
}

func TestWaitForKeyIgnoresEarlierPress(t *testing.T) {
	// A key pressed and released before the wait instruction executes must
	// not satisfy it; the wait blocks until a fresh press arrives.
	m := loadMachine(t, 0xF10A)
	m.Keys.SetKey(5, true)
	m.Keys.SetKey(5, false)

	stepN(t, m, 2)
	if !m.Waiting {
		t.Fatalf("expected wait to ignore the press predating it")
	}
	if m.PC != 0x200 {
		t.Errorf("expected PC held at 0x200, got 0x%03X", m.PC)
	}
	if m.V[1] != 0 {
		t.Errorf("expected V1 untouched, got 0x%02X", m.V[1])
	}

	// A press arriving during the wait releases it.
	m.Keys.SetKey(5, true)
	stepN(t, m, 1)
	if m.Waiting || m.V[1] != 5 || m.PC != 0x202 {
		t.Errorf("fresh press: expected V1=5 PC=0x202, got V1=0x%02X PC=0x%03X", m.V[1], m.PC)
	}
}

func TestPCOverflowFaults(t *testing.T) {
	// Jump to the last word; the zero word there executes as SYS, then the
	// next fetch runs past 0xFFF and faults.
	m := loadMachine(t, 0x1FFE)
	stepN(t, m, 2)

	err := m.Step()
	if !errors.Is(err, ErrMemoryOutOfRange) {
		t.Fatalf("expected ErrMemoryOutOfRange, got %v", err)
	}

	var f *Fault
	if !errors.As(err, &f) {
		t.Fatalf("expected a *Fault, got %T", err)
	}
	if f.PC != 0x1000 {
		t.Errorf("fault: expected PC=0x1000, got 0x%03X", f.PC)
	}
}

func TestInstructionSummary(t *testing.T) {
	m := loadMachine(t, 0x00E0)
	stepN(t, m, 1)

	if m.LastExecuted != "200  00E0  CLS" {
		t.Errorf("summary: got %q", m.LastExecuted)
	}
}
