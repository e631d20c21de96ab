package emulator

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/minicpu/cpu"
	"github.com/ezrec/minicpu/io"
)

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	assert.False(emu.Verbose)
	assert.NotNil(emu.Cpu)
	assert.NotNil(emu.Program)
	assert.Equal(TEMP_CAPACITY, len(emu.Temporary.Data))
}

func TestEmulatorDefines(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	defines := map[string]string{}
	for key, value := range emu.Defines() {
		defines[key] = value
	}

	assert.Equal(fmt.Sprintf("%v", TEMP_CAPACITY), defines["TEMP_CAPACITY"])
	assert.Equal(fmt.Sprintf("%v", io.PORT_TAPE), defines["PORT_TAPE"])
	assert.Equal(fmt.Sprintf("%#x", cpu.SYS_PRINT_REG), defines["SYS_PRINT_REG"])
}

func doAssemble(emu *Emulator, program []string, t *testing.T) {
	err := emu.Assemble(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}

	err = emu.Reset()
	if err != nil {
		t.Fatal(err)
	}
}

var hello = []string{
	"      in r2 PORT_ROM ; halt address",
	"      in r1 PORT_ROM",
	"      out r1 PORT_TAPE",
	"      in r1 PORT_ROM",
	"      out r1 PORT_TAPE",
	"done: jump r2",
}

func TestEmulatorRun(t *testing.T) {
	assert := assert.New(t)

	for _, flat := range []bool{false, true} {
		var emu *Emulator
		if flat {
			emu = NewEmulator(cpu.WithFlat())
		} else {
			emu = NewEmulator()
		}

		emu.Rom.Data = []uint32{5, 'H', 'i'}
		output := &bytes.Buffer{}
		emu.Tape.Output = output

		doAssemble(emu, hello, t)

		report := emu.Run(20)
		assert.Equal(cpu.HALT_BUDGET, report.Reason)
		assert.Equal(uint32(5), report.Pc)
		assert.Equal("Hi", output.String())
		assert.Equal(2, emu.Tape.Written)
		assert.Equal(6, emu.LineNo())
	}
}

func TestEmulatorTick(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Rom.Data = []uint32{5, 'H', 'i'}
	emu.Tape.Output = &bytes.Buffer{}

	doAssemble(emu, hello, t)

	for n := range 5 {
		assert.Equal(n+1, emu.LineNo())
		assert.Equal(emu.Program.Lines[n].Codes[0], emu.Code())
		done, err := emu.Tick()
		assert.NoError(err)
		assert.False(done)
	}
	assert.Equal(6, emu.LineNo())

	flat := NewEmulator(cpu.WithFlat())
	flat.SetPc(flat.AddressLimit())
	done, err := flat.Tick()
	assert.NoError(err)
	assert.True(done)
}

func TestEmulatorFault(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Rom.Data = []uint32{100}

	doAssemble(emu, []string{
		"in r1 PORT_ROM",
		"out r1 PORT_TEMP",
		"in r2 PORT_TEMP",
		"in r3 PORT_TEMP",
		"div r1 r4",
	}, t)

	report := emu.Run(0)
	assert.Equal(cpu.HALT_FAULT, report.Reason)
	assert.Equal(uint32(4), report.Ip)
	assert.ErrorIs(report.Err, cpu.ErrDivisionByZero)

	var runtime *ErrRuntime
	if assert.True(errors.As(report.Err, &runtime)) {
		assert.Equal(5, runtime.LineNo)
		assert.True(strings.HasPrefix(runtime.Error(), "line 5 "), runtime.Error())
	}

	r2, _ := emu.Register(2)
	r3, _ := emu.Register(3)
	assert.Equal(uint32(100), r2)
	assert.Equal(^uint32(0), r3)
}

func TestEmulatorTickFault(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	doAssemble(emu, []string{
		"ret",
	}, t)

	done, err := emu.Tick()
	assert.False(done)
	assert.ErrorIs(err, cpu.ErrStackUnderflow)

	var runtime *ErrRuntime
	if assert.True(errors.As(err, &runtime)) {
		assert.Equal(1, runtime.LineNo)
	}
}

func TestEmulatorLoadHex(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	skipped, err := emu.LoadHex(strings.NewReader("0301_0200\nbogus\n; comment\n\n0C 00 00 00\n"))
	assert.NoError(err)
	if assert.Equal(1, len(skipped)) {
		assert.Equal(2, skipped[0].LineNo)
		assert.Equal("bogus", skipped[0].Line)
	}
	assert.Equal([]uint32{0x03010200, 0x0c000000}, emu.Program.Binary())

	assert.NoError(emu.Reset())
	assert.Equal(uint32(0x03010200), emu.Memory()[0])

	report := emu.Run(10)
	assert.Equal(cpu.HALT_FAULT, report.Reason)
	assert.ErrorIs(report.Err, cpu.ErrStackUnderflow)

	var runtime *ErrRuntime
	if assert.True(errors.As(report.Err, &runtime)) {
		assert.Equal(2, runtime.LineNo)
	}
}

func TestEmulatorAssembleError(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	prog := emu.Program

	err := emu.Assemble(strings.NewReader("bogus\n"))
	assert.ErrorIs(err, cpu.ErrInstructionInvalid)
	assert.Same(prog, emu.Program)
}

func TestErrRuntime(t *testing.T) {
	assert := assert.New(t)

	err := &ErrRuntime{Err: cpu.ErrPageFault}
	assert.Equal(cpu.ErrPageFault.Error(), err.Error())
	assert.ErrorIs(err, cpu.ErrPageFault)
}
