// Command socsim drives one of the four processor variants (spec.md
// §4.8) against an in-process memtx.Store, ringing its doorbell with a
// program built in Go or authored in Lua, then running the clock to
// quiescence (or single-stepping it interactively).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/soclab/socsim/app"
	"github.com/soclab/socsim/memtx"
	"github.com/soclab/socsim/processor"
	"github.com/soclab/socsim/sim"
)

// Config is SPEC_FULL.md §6's external configuration surface.
type Config struct {
	NumRegisters   int
	MemoryName     string
	BandwidthSlots int
}

func main() {
	numRegisters := flag.Int("registers", 8, "number of general-purpose registers")
	memoryName := flag.String("memory-name", "main", "label for the backing memtx.Store")
	bandwidth := flag.Int("bandwidth", 4, "number of memory requests that may be in flight at once")
	variant := flag.String("processor", "pipelined", "processor variant: functional, memorybound, staged, pipelined")
	program := flag.String("program", "simple", "program to run: simple, loop, or a path to a Lua script")
	loopMode := flag.String("loop-mode", "alu", "loop program body: alu, memory, split (only with -program loop)")
	loopIterations := flag.Int64("loop-iterations", 4, "loop iteration count (only with -program loop)")
	loopOps := flag.Int("loop-ops", 2, "loop body instructions per iteration (only with -program loop)")
	interactive := flag.Bool("interactive", false, "single-step the clock one tick per keypress")
	maxTicks := flag.Int("max-ticks", 100000, "runaway guard on ticks before giving up")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: socsim [options]\n\nRuns a first_soc processor variant against a program.\n\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  socsim -processor functional -program simple\n")
		fmt.Fprintf(os.Stderr, "  socsim -processor pipelined -program loop -loop-mode split -interactive\n")
		fmt.Fprintf(os.Stderr, "  socsim -processor memorybound -program ./program.lua\n")
	}
	flag.Parse()

	cfg := Config{NumRegisters: *numRegisters, MemoryName: *memoryName, BandwidthSlots: *bandwidth}

	if err := run(cfg, *variant, *program, *loopMode, *loopIterations, *loopOps, *interactive, *maxTicks); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg Config, variant, program, loopMode string, loopIterations int64, loopOps int, interactive bool, maxTicks int) error {
	store := memtx.NewStore(cfg.BandwidthSlots)
	builder := app.NewBuilder(store, 0)

	start, err := buildProgram(builder, program, loopMode, loopIterations, loopOps)
	if err != nil {
		return err
	}

	if variant == "functional" {
		f := processor.NewFunctional(cfg.NumRegisters, store)
		if err := f.Run(start); err != nil {
			return err
		}
		fmt.Printf("memory %q: PC=%d registers=%v\n", cfg.MemoryName, f.Core.PC(), f.Core.Registers())
		return nil
	}

	clock := sim.NewClock()

	type ringer interface {
		Ring(addr memtx.Address)
	}
	var proc ringer
	var pc func() memtx.Address
	var registers func() []int64
	var fetches func() int

	switch variant {
	case "memorybound":
		p := processor.NewMemoryBound(clock, cfg.NumRegisters)
		processor.NewMemoryLink(clock, store, p.InstructionRequest, p.InstructionResponse)
		processor.NewMemoryLink(clock, store, p.DataRequest, p.DataResponse)
		proc, pc, registers, fetches = p, p.Core.PC, p.Core.Registers, func() int { return p.MemoryFetches }
	case "staged":
		p := processor.NewStaged(clock, cfg.NumRegisters)
		processor.NewMemoryLink(clock, store, p.InstructionRequest, p.InstructionResponse)
		processor.NewMemoryLink(clock, store, p.DataRequest, p.DataResponse)
		proc, pc, registers, fetches = p, p.Core.PC, p.Core.Registers, func() int { return p.MemoryFetches }
	case "pipelined":
		p := processor.NewPipelined(clock, cfg.NumRegisters)
		processor.NewMemoryLink(clock, store, p.InstructionRequest, p.InstructionResponse)
		processor.NewMemoryLink(clock, store, p.DataRequest, p.DataResponse)
		proc, pc, registers, fetches = p, p.Core.PC, p.Core.Registers, func() int { return p.MemoryFetches }
	default:
		return fmt.Errorf("unknown processor variant %q", variant)
	}

	proc.Ring(start)
	clock.Tick()

	if interactive && term.IsTerminal(int(os.Stdin.Fd())) {
		return runInteractive(clock, pc, registers)
	}

	clock.RunToQuiescence(maxTicks)
	fmt.Printf("memory %q: ticks=%d fetches=%d backpressure=%d PC=%d registers=%v\n",
		cfg.MemoryName, clock.Ticks(), fetches(), store.BackPressureEvents(), pc(), registers())
	return nil
}

func buildProgram(builder *app.Builder, program, loopMode string, loopIterations int64, loopOps int) (memtx.Address, error) {
	switch program {
	case "simple":
		return app.NewSimpleApplication(builder).Build(), nil
	case "loop":
		mode, err := parseLoopMode(loopMode)
		if err != nil {
			return 0, err
		}
		return app.NewLoopApplication(builder, mode, loopIterations, loopOps, 0, 1).Build(), nil
	default:
		source, err := os.ReadFile(program)
		if err != nil {
			return 0, fmt.Errorf("reading Lua script %q: %w", program, err)
		}
		return app.NewScript(builder).Run(string(source))
	}
}

func parseLoopMode(mode string) (app.LoopMode, error) {
	switch mode {
	case "alu":
		return app.LoopALU, nil
	case "memory":
		return app.LoopMemory, nil
	case "split":
		return app.LoopSplit, nil
	default:
		return 0, fmt.Errorf("unknown loop mode %q", mode)
	}
}

// runInteractive puts the terminal into raw mode and advances the clock
// one tick per keypress, printing the functional core's PC and register
// file after each tick (SPEC_FULL.md §4.12).
func runInteractive(clock *sim.Clock, pc func() memtx.Address, registers func() []int64) error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("entering raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	reader := bufio.NewReader(os.Stdin)
	fmt.Fprintf(os.Stdout, "interactive mode: press any key to tick, q to quit\r\n")
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return err
		}
		if b == 'q' || b == 'Q' || b == 3 {
			return nil
		}
		ran := clock.Tick()
		fmt.Fprintf(os.Stdout, "tick %d: ran=%d PC=%d registers=%v\r\n", clock.Ticks(), ran, pc(), registers())
		if !clock.Pending() && ran == 0 {
			fmt.Fprintf(os.Stdout, "quiescent\r\n")
			return nil
		}
	}
}
