// Package fuzz runs random instruction streams on fresh CPUs and
// classifies how each one halted.
//
// A program that halts on a fault is a finding, recorded once per fault
// kind. A panic inside the CPU is a vulnerability: it is recovered and
// recorded with the program that caused it.
package fuzz

import (
	"fmt"
	"log"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/ezrec/minicpu/cpu"
	"github.com/ezrec/minicpu/translate"
)

var f = translate.From

const (
	TESTS            = 1000 // Default number of programs.
	MAX_INSTRUCTIONS = 100  // Default longest program, in words.
)

// Finding is a program that faulted or panicked.
type Finding struct {
	Test    int        // Test number, from 0.
	Program []uint32   // The program text.
	Report  cpu.Report // How the run halted.
	Panic   any        // Recovered panic value, if any.
}

// Vulnerable is true if the CPU panicked instead of faulting.
func (fn *Finding) Vulnerable() bool {
	return fn.Panic != nil
}

func (fn *Finding) String() string {
	if fn.Vulnerable() {
		return f("test %d: panic: %v", fn.Test, fn.Panic)
	}
	return f("test %d: %v", fn.Test, fn.Report)
}

// Result summarizes a fuzzing session.
type Result struct {
	Tests    int                    // Programs run.
	Halts    map[cpu.HaltReason]int // Programs per halt reason.
	Faults   map[cpu.FaultKind]int  // Programs per fault kind.
	Findings []Finding              // First program per fault kind, and every panic.

	seen map[cpu.FaultKind]struct{}
}

// Vulnerabilities returns the findings where the CPU panicked.
func (res *Result) Vulnerabilities() (list []Finding) {
	for _, fn := range res.Findings {
		if fn.Vulnerable() {
			list = append(list, fn)
		}
	}
	return
}

// Histogram renders the per fault kind counts as text bars, scaled to
// width columns.
func (res *Result) Histogram(width int) string {
	var sb strings.Builder

	peak := 0
	for _, count := range res.Faults {
		peak = max(peak, count)
	}

	fmt.Fprintf(&sb, "%v\n", f("%d tests", res.Tests))
	for _, reason := range []cpu.HaltReason{cpu.HALT_BUDGET, cpu.HALT_PC_RANGE, cpu.HALT_FAULT} {
		fmt.Fprintf(&sb, "%24s: %d\n", reason.String(), res.Halts[reason])
	}

	label := 24 + 2 + 6 + 1
	bar := max(width-label, 1)
	for _, kind := range cpu.FaultKinds {
		count := res.Faults[kind]
		size := 0
		if peak > 0 {
			size = (count*bar + peak - 1) / peak
		}
		fmt.Fprintf(&sb, "%24s: %6d %s\n", kind.String(), count, strings.Repeat("#", size))
	}

	return sb.String()
}

// Fuzzer generates and runs random programs.
type Fuzzer struct {
	Verbose         bool         // If set, logs every test.
	Seed            uint64       // Random seed; the same seed replays the same programs.
	Tests           int          // Number of programs to run.
	MaxInstructions int          // Longest program, in words.
	StopAtFirst     bool         // Stop at the first finding.
	Options         []cpu.Option // Configuration of each fresh CPU.

	// Setup prepares each fresh CPU before the program is loaded.
	// By default, a paged CPU has its physical pages identity mapped.
	Setup func(*cpu.Cpu) error

	rng *rand.Rand
}

// NewFuzzer creates a fuzzer with default limits for CPUs built with opts.
func NewFuzzer(seed uint64, opts ...cpu.Option) *Fuzzer {
	return &Fuzzer{
		Seed:            seed,
		Tests:           TESTS,
		MaxInstructions: MAX_INSTRUCTIONS,
		Options:         slices.Clone(opts),
		Setup:           MapIdentity,
	}
}

// MapIdentity identity maps every physical page of a paged CPU with full
// permissions.
func MapIdentity(c *cpu.Cpu) error {
	return c.MapIdentity(cpu.PERM_RWX)
}

// Program generates a random program of 1 to MaxInstructions words.
func (fz *Fuzzer) Program() (program []uint32) {
	if fz.rng == nil {
		fz.rng = rand.New(rand.NewPCG(fz.Seed, fz.Seed))
	}

	limit := max(fz.MaxInstructions, 1)
	program = make([]uint32, 1+fz.rng.IntN(limit))
	for n := range program {
		program[n] = fz.rng.Uint32()
	}

	return
}

// Execute runs one program on a fresh CPU. A panic is recovered into the
// finding.
func (fz *Fuzzer) Execute(test int, program []uint32) (finding Finding, err error) {
	finding = Finding{
		Test:    test,
		Program: program,
	}

	defer func() {
		if r := recover(); r != nil {
			finding.Panic = r
			finding.Report.Reason = cpu.HALT_FAULT
		}
	}()

	c := cpu.NewCpu(fz.Options...)
	if fz.Setup != nil {
		if err = fz.Setup(c); err != nil {
			return
		}
	}

	err = c.LoadProgram(program)
	if err != nil {
		return
	}

	finding.Report = c.Run(cpu.MAX_INSTRUCTIONS)
	return
}

// Run generates and runs Tests programs.
func (fz *Fuzzer) Run() (res *Result, err error) {
	res = &Result{
		Halts:  map[cpu.HaltReason]int{},
		Faults: map[cpu.FaultKind]int{},
		seen:   map[cpu.FaultKind]struct{}{},
	}

	for test := range fz.Tests {
		program := fz.Program()

		var finding Finding
		finding, err = fz.Execute(test, program)
		if err != nil {
			return
		}

		res.Tests++
		res.Halts[finding.Report.Reason]++

		if fz.Verbose {
			log.Printf("fuzz: %v", &finding)
		}

		found := false
		switch {
		case finding.Vulnerable():
			found = true
		case finding.Report.Fault != nil:
			kind := finding.Report.Fault.Kind
			res.Faults[kind]++
			if _, ok := res.seen[kind]; !ok {
				res.seen[kind] = struct{}{}
				found = true
			}
		}

		if found {
			res.Findings = append(res.Findings, finding)
			if fz.StopAtFirst {
				return
			}
		}
	}

	return
}
