package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"gochip8/pkg/chip8"
)

func main() {
	speed := flag.Int("speed", chip8.DefaultSpeed, "instructions per second")
	trace := flag.Bool("trace", false, "print every executed instruction")
	maxInstr := flag.Int64("max", 0, "stop after this many instructions (0 = run until halted or interrupted)")
	dump := flag.Bool("dump", false, "print the final display as ASCII")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: console [flags] <rom>")
	}

	program, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read ROM: %v", err)
	}

	vm := chip8.New()
	if err := vm.LoadROM(program); err != nil {
		log.Fatalf("Failed to load ROM: %v", err)
	}

	sched := chip8.NewScheduler(vm)
	sched.SetSpeed(*speed)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *trace || *maxInstr > 0 {
		runCounted(ctx, sched, vm, *maxInstr, *trace)
	} else {
		if err := sched.Run(ctx); err != nil {
			log.Fatalf("Halted at PC=%03X: %v", sched.FaultPC(), err)
		}
	}

	if *dump {
		fmt.Print(asciiDisplay(vm))
	}
}

// runCounted drives the scheduler on virtual time, one instruction period
// per tick, so traces are deterministic and independent of host load. Timer
// decay follows the same virtual clock at its fixed 60 Hz cadence.
func runCounted(ctx context.Context, sched *chip8.Scheduler, vm *chip8.Machine, max int64, trace bool) {
	sched.Start()

	period := time.Second / time.Duration(sched.Speed())
	now := time.Unix(0, 0)
	sched.Tick(now)

	var seen int64
	for max == 0 || seen < max {
		if ctx.Err() != nil {
			return
		}

		now = now.Add(period)
		if err := sched.Tick(now); err != nil {
			log.Fatalf("Halted at PC=%03X: %v", sched.FaultPC(), err)
		}

		snap := vm.Snapshot()
		if snap.Cycles == seen {
			if snap.Waiting {
				// No input source feeds the keypad here; the wait
				// would spin forever.
				log.Printf("Waiting for a key at PC=%03X with no input source; stopping", snap.PC)
				return
			}
			continue
		}

		if trace {
			fmt.Println(snap.LastExecuted)
		}
		seen = snap.Cycles
	}
}

func asciiDisplay(vm *chip8.Machine) string {
	var b strings.Builder
	for y := 0; y < chip8.DisplayHeight; y++ {
		for x := 0; x < chip8.DisplayWidth; x++ {
			if vm.Display.Pixel(x, y) {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
