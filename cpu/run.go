package cpu

import (
	"log"
)

const (
	MAX_INSTRUCTIONS = 100 // Default instruction budget of a Run.
)

// HaltReason is why a Run stopped.
type HaltReason int

//go:generate go tool stringer -linecomment -type=HaltReason
const (
	HALT_BUDGET   = HaltReason(0) // budget exhausted
	HALT_PC_RANGE = HaltReason(1) // pc out of range
	HALT_FAULT    = HaltReason(2) // fault
)

// Report is the outcome of a Run.
type Report struct {
	Reason   HaltReason
	Err      error  // Set when Reason is HALT_FAULT.
	Fault    *Fault // The fault carried by Err.
	Executed int    // Instructions fetched during this run.
	Pc       uint32 // PC at halt.
	Ip       uint32 // Address of the faulting instruction.
}

// String summarizes the report.
func (r Report) String() string {
	if r.Reason == HALT_FAULT && r.Err != nil {
		return f("%v after %d instructions at pc 0x%x: %v", r.Reason.String(), r.Executed, r.Pc, r.Err)
	}
	return f("%v after %d instructions at pc 0x%x", r.Reason.String(), r.Executed, r.Pc)
}

// Run steps until the PC leaves the address space, a fault is raised, or
// max instructions have executed. A max of zero or less means
// MAX_INSTRUCTIONS. The budget is checked before every step, so every
// program halts.
func (cpu *Cpu) Run(max int) (report Report) {
	if max <= 0 {
		max = MAX_INSTRUCTIONS
	}

	start := cpu.count
	defer func() {
		report.Executed = int(cpu.count - start)
		report.Pc = cpu.pc
		if cpu.Verbose {
			log.Printf("cpu: halt: %v", report)
		}
	}()

	for int(cpu.count-start) < max {
		if cpu.pc >= cpu.translator.Limit() {
			report.Reason = HALT_PC_RANGE
			return
		}

		report.Ip = cpu.pc
		err := cpu.Step()
		if err != nil {
			report.Reason = HALT_FAULT
			report.Err = err
			report.Fault, _ = FaultOf(err)
			return
		}
	}

	report.Reason = HALT_BUDGET
	return
}
