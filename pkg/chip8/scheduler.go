package chip8

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the scheduler's execution state.
type State int

const (
	// Stopped means no instructions execute until a start or step request.
	Stopped State = iota
	// Running means instructions execute at the configured rate.
	Running
	// Halted means a fatal fault stopped execution. It is terminal until
	// Reset reloads the program.
	Halted
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Halted:
		return "halted"
	}
	return "unknown"
}

const (
	// DefaultSpeed is the default instruction rate. The RCA 1802 behind the
	// original machine managed roughly 500 CHIP-8 instructions per second.
	DefaultSpeed = 500

	// timerPeriod is the architecturally fixed 60 Hz timer cadence. It does
	// not change with the instruction rate.
	timerPeriod = time.Second / 60

	// maxCatchUp caps how much wall-clock time a single tick may replay,
	// so a long stall does not burst thousands of instructions.
	maxCatchUp = time.Second / 4
)

// Scheduler drives the fetch-decode-execute loop against wall-clock time.
// It runs two independent logical clocks: the configurable instruction
// clock and the fixed 60 Hz timer clock. All methods are safe to call from
// other goroutines; machine mutation stays confined to the ticking caller.
type Scheduler struct {
	mu sync.Mutex

	m     *Machine
	speed int
	state State

	haltErr error
	haltPC  uint16

	last     time.Time
	instrRem time.Duration
	timerRem time.Duration
}

// NewScheduler wraps m with a scheduler at the default instruction rate.
func NewScheduler(m *Machine) *Scheduler {
	return &Scheduler{m: m, speed: DefaultSpeed}
}

// Machine returns the scheduled machine.
func (s *Scheduler) Machine() *Machine { return s.m }

// SetSpeed changes the instruction rate. It takes effect on the next tick;
// rates below one instruction per second are clamped.
func (s *Scheduler) SetSpeed(ips int) {
	if ips < 1 {
		ips = 1
	}
	s.mu.Lock()
	s.speed = ips
	s.mu.Unlock()
}

// Speed returns the configured instruction rate.
func (s *Scheduler) Speed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// State returns the current execution state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the fault that halted execution, or nil.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.haltErr
}

// FaultPC returns the program counter of the halting fault. Only meaningful
// while the scheduler is Halted.
func (s *Scheduler) FaultPC() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.haltPC
}

// Start moves Stopped to Running. Frame-driven frontends call Start once
// and then Tick every frame. Starting a halted scheduler has no effect.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Stopped {
		s.state = Running
	}
}

// Pause stops free-running execution at the next instruction boundary. The
// machine state is always consistent afterwards; a tick never pauses
// mid-opcode.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Running {
		s.state = Stopped
	}
}

// Step executes exactly one instruction and returns to Stopped. Timer decay
// is not driven here; single-stepping is a debug mode where wall-clock
// cadences are meaningless.
func (s *Scheduler) Step() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Halted {
		return s.haltErr
	}

	s.state = Running
	if err := s.m.Step(); err != nil {
		s.haltLocked(err)
		return err
	}
	s.state = Stopped
	return nil
}

// Tick advances both clocks to now, executing however many instructions and
// timer decrements the elapsed wall-clock time owes. Frontends with their
// own frame loop call this once per frame; Run calls it continuously. On a
// fault the scheduler transitions to Halted and returns the error.
func (s *Scheduler) Tick(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last.IsZero() {
		s.last = now
		return s.haltErr
	}

	elapsed := now.Sub(s.last)
	s.last = now
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > maxCatchUp {
		elapsed = maxCatchUp
	}

	if s.state != Running {
		// Not executing, but the clock marks above stay current so
		// resuming does not replay the paused interval.
		return s.haltErr
	}

	// Timer clock: fixed 60 Hz, decays even while waiting on a key.
	s.timerRem += elapsed
	for s.timerRem >= timerPeriod {
		s.timerRem -= timerPeriod
		s.m.TickTimers()
	}

	// Instruction clock: configurable rate.
	period := time.Second / time.Duration(s.speed)
	s.instrRem += elapsed
	for s.instrRem >= period {
		s.instrRem -= period
		if err := s.m.Step(); err != nil {
			s.haltLocked(err)
			return err
		}
		if s.m.Waiting {
			// Key-wait suspends instruction progress; drop the owed
			// instructions instead of replaying them on key arrival.
			s.instrRem = 0
			break
		}
	}

	return nil
}

// Run free-runs the machine until the context is canceled, Pause is called,
// or a fault halts execution. Cancellation takes effect at an instruction
// boundary. Returns nil on pause or cancellation, the fault on halt.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Halted {
		err := s.haltErr
		s.mu.Unlock()
		return err
	}
	s.state = Running
	s.last = time.Time{}
	s.mu.Unlock()

	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Pause()
			return nil
		case now := <-tick.C:
			if err := s.Tick(now); err != nil {
				return err
			}
			if s.State() != Running {
				return nil
			}
		}
	}
}

// Reset reloads the machine's pristine program image and returns the
// scheduler to Stopped, clearing any halt fault.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m.Reset()
	s.state = Stopped
	s.haltErr = nil
	s.haltPC = 0
	s.last = time.Time{}
	s.instrRem = 0
	s.timerRem = 0
}

func (s *Scheduler) haltLocked(err error) {
	s.state = Halted
	s.haltErr = err

	var f *Fault
	if errors.As(err, &f) {
		s.haltPC = f.PC
	}
}
