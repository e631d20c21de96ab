package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_SelfJump(t *testing.T) {
	assert := assert.New(t)

	cpu := loaded(t, MakeCode(OP_JUMP, 0, 0, 0))

	report := cpu.Run(50)
	assert.Equal(HALT_BUDGET, report.Reason)
	assert.Equal(50, report.Executed)
	assert.Equal(uint32(0), report.Pc)
	assert.NoError(report.Err)

	report = cpu.Run(0)
	assert.Equal(HALT_BUDGET, report.Reason)
	assert.Equal(MAX_INSTRUCTIONS, report.Executed)
	assert.Equal(uint64(150), cpu.InstructionCount())
}

func TestRun_Fault(t *testing.T) {
	assert := assert.New(t)

	cpu := loaded(t,
		MakeCode(OP_ADD, 1, 2, 0),
		MakeCode(OP_DIV, 1, 3, 0),
	)
	cpu.SetRegister(2, 3)

	report := cpu.Run(10)
	assert.Equal(HALT_FAULT, report.Reason)
	assert.Equal(2, report.Executed)
	assert.Equal(uint32(2), report.Pc)
	assert.Equal(uint32(1), report.Ip)
	assert.ErrorIs(report.Err, ErrDivisionByZero)
	assert.NotNil(report.Fault)
	assert.Equal(FAULT_DIVISION_BY_ZERO, report.Fault.Kind)
	assert.Contains(report.String(), "fault after 2 instructions at pc 0x2")

	r1, _ := cpu.Register(1)
	assert.Equal(uint32(3), r1)
}

func TestRun_FetchFault(t *testing.T) {
	assert := assert.New(t)

	cpu := loaded(t, MakeCode(OP_ADD, 1, 1, 0))
	cpu.SetPc(8 * PAGE_SIZE)

	report := cpu.Run(10)
	assert.Equal(HALT_FAULT, report.Reason)
	assert.Equal(0, report.Executed)
	assert.Equal(FAULT_PAGE, report.Fault.Kind)
}

func TestRun_PcRange(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(WithFlat())
	cpu.SetPc(1023)

	report := cpu.Run(10)
	assert.Equal(HALT_FAULT, report.Reason)
	assert.ErrorIs(report.Err, ErrInvalidOpcode)

	cpu.Reset()
	cpu.SetPc(1023)
	cpu.memory[1023] = uint32(MakeCode(OP_ENTER_PRIVILEGED, 0, 0, 0))

	report = cpu.Run(10)
	assert.Equal(HALT_PC_RANGE, report.Reason)
	assert.Equal(1, report.Executed)
	assert.Equal(uint32(1024), report.Pc)
	assert.Nil(report.Err)
	assert.Equal("pc out of range after 1 instructions at pc 0x400", report.String())

	report = cpu.Run(10)
	assert.Equal(HALT_PC_RANGE, report.Reason)
	assert.Equal(0, report.Executed)
}

func TestRun_Loop(t *testing.T) {
	assert := assert.New(t)

	// r1 counts down from 3 by r2; r3 holds the loop top, r4 the exit.
	cpu := loaded(t,
		MakeCode(OP_JUMP_IF_ZERO, 1, 4, 0),
		MakeCode(OP_SUB, 1, 2, 0),
		MakeCode(OP_JUMP, 3, 0, 0),
		MakeCode(OP_ENTER_PRIVILEGED, 0, 0, 0),
		MakeCode(OP_JUMP, 5, 0, 0),
	)
	cpu.SetRegister(1, 3)
	cpu.SetRegister(2, 1)
	cpu.SetRegister(3, 0)
	cpu.SetRegister(4, 4)
	cpu.SetRegister(5, 4)

	report := cpu.Run(30)
	assert.Equal(HALT_BUDGET, report.Reason)
	assert.Equal(uint32(4), report.Pc)
	r1, _ := cpu.Register(1)
	assert.Equal(uint32(0), r1)
	assert.False(cpu.Predict(1))
}
