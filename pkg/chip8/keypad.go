package chip8

import "sync"

// NumKeys is the size of the hex keypad.
const NumKeys = 16

// Keypad holds the 16-key pad state. The input collaborator is the sole
// writer through SetKey and may run on a different goroutine than the
// interpreter, so the flag array is mutex-guarded. While armed by a
// blocking key-wait, press transitions are queued so the wait observes a
// press exactly once, even one released again before the interpreter
// polls. Presses arriving before the wait armed never satisfy it.
type Keypad struct {
	mu      sync.Mutex
	keys    [NumKeys]bool
	armed   bool
	presses []byte
}

func NewKeypad() *Keypad {
	return &Keypad{}
}

// SetKey records the pressed state of key. While a wait is armed, a
// false→true transition is appended to the press queue.
func (k *Keypad) SetKey(key byte, pressed bool) {
	if key >= NumKeys {
		return
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.armed && pressed && !k.keys[key] {
		k.presses = append(k.presses, key)
	}
	k.keys[key] = pressed
}

// Pressed reports whether key is currently held down.
func (k *Keypad) Pressed(key byte) bool {
	if key >= NumKeys {
		return false
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	return k.keys[key]
}

// AwaitPress arms press capture. Any presses queued before arming are
// dropped, so only transitions arriving from this point on can satisfy
// the wait.
func (k *Keypad) AwaitPress() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.armed = true
	k.presses = nil
}

// TakePress pops the oldest press transition queued since AwaitPress armed
// the capture, disarming it. It reports false while no press has arrived.
func (k *Keypad) TakePress() (byte, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if len(k.presses) == 0 {
		return 0, false
	}
	key := k.presses[0]
	k.presses = k.presses[1:]
	k.armed = false
	return key, true
}

// Reset releases every key, disarms press capture and drops any queued
// presses.
func (k *Keypad) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.keys = [NumKeys]bool{}
	k.armed = false
	k.presses = nil
}
