// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	stdio "io"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/minicpu/cpu"
	"github.com/ezrec/minicpu/internal"
	"github.com/ezrec/minicpu/io"
)

const (
	TEMP_CAPACITY = 256 // Words held by the temporary FIFO.
)

var _emulator_defines = map[string]string{
	"TEMP_CAPACITY": fmt.Sprintf("%v", TEMP_CAPACITY),
}

// Emulator is a session: a CPU, the program listing loaded into it, and
// the devices on its conventional ports.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently loaded program listing.

	Tape      io.Tape      // Tape device on PORT_TAPE.
	Temporary io.Temporary // Temporary FIFO on PORT_TEMP.
	Rom       io.Rom       // Constant ROM on PORT_ROM.
}

// NewEmulator creates a new emulator session around a CPU built with opts.
func NewEmulator(opts ...cpu.Option) (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(opts...),
		Program: &cpu.Program{},
	}

	emu.Temporary.Capacity = TEMP_CAPACITY
	emu.Temporary.Rewind()

	emu.Cpu.Attach(io.PORT_TAPE, &emu.Tape)
	emu.Cpu.Attach(io.PORT_TEMP, &emu.Temporary)
	emu.Cpu.Attach(io.PORT_ROM, &emu.Rom)

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Assemble parses assembly source into the session's program listing.
// The session defines are predefined as equates.
func (emu *Emulator) Assemble(input stdio.Reader) (err error) {
	asm := &cpu.Assembler{Verbose: emu.Verbose}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}

	prog, err := asm.Parse(input)
	if err != nil {
		return
	}

	emu.Program = prog
	return
}

// LoadHex reads hexadecimal program text into the session's program
// listing. Malformed lines are skipped and returned.
func (emu *Emulator) LoadHex(input stdio.Reader) (skipped []io.ErrHexLine, err error) {
	words, skipped, err := io.ReadHex(input)
	if err != nil {
		return
	}

	if emu.Verbose {
		for _, line := range skipped {
			log.Printf("emulator: skipped %v", line)
		}
	}

	emu.Program = cpu.ProgramOf(words)
	return
}

// Reset the CPU, identity map it, and load the program listing at
// address 0.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = false

	emu.Cpu.Reset()

	err = emu.Cpu.MapIdentity(cpu.PERM_RWX)
	if err != nil {
		return
	}

	err = emu.Cpu.LoadProgram(emu.Program.Binary())
	if err != nil {
		return
	}

	emu.Cpu.Verbose = emu.Verbose

	return
}

// Code returns the current instruction code.
func (emu *Emulator) Code() cpu.Code {
	for ip, code := range emu.Program.Codes() {
		if emu.Cpu.Pc() == ip {
			return code
		}
	}

	return 0
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	return emu.lineOf(emu.Cpu.Pc())
}

func (emu *Emulator) lineOf(ip uint32) int {
	dbg := emu.Program.Debug(ip)
	if dbg.Line == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single step of the emulator. done is set once the PC
// has left the address space.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	if emu.Cpu.Pc() >= emu.Cpu.AddressLimit() {
		done = true
		return
	}

	lineno := emu.LineNo()
	err = emu.Cpu.Step()
	if err != nil {
		err = &ErrRuntime{LineNo: lineno, Err: err}
	}

	return
}

// Run the CPU for at most max instructions. A fault is annotated with the
// source line of the faulting instruction.
func (emu *Emulator) Run(max int) (report cpu.Report) {
	emu.Cpu.Verbose = emu.Verbose

	report = emu.Cpu.Run(max)
	if report.Err != nil {
		report.Err = &ErrRuntime{LineNo: emu.lineOf(report.Ip), Err: report.Err}
	}

	if emu.Verbose {
		log.Printf("emulator: %v", report)
	}

	return
}
