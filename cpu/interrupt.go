package cpu

import (
	"log"
)

const (
	VECTOR_COUNT = 16 // Interrupt vector table entries.
)

// SetVector installs the handler address for an interrupt number.
func (cpu *Cpu) SetVector(number uint8, handler uint32) (err error) {
	if int(number) >= len(cpu.vector) {
		err = fault(FAULT_OUT_OF_RANGE_INTERRUPT, uint32(number))
		return
	}

	cpu.vector[number] = handler
	return
}

// Vector returns the handler address for an interrupt number.
func (cpu *Cpu) Vector(number uint8) (handler uint32, err error) {
	if int(number) >= len(cpu.vector) {
		err = fault(FAULT_OUT_OF_RANGE_INTERRUPT, uint32(number))
		return
	}

	handler = cpu.vector[number]
	return
}

// Interrupt dispatches to a vectored handler: the PC is pushed on the
// operand stack, the PC is loaded from the vector table, and privileged
// mode is forced.
//
// There is no return-from-interrupt. An ordinary RET pops the saved PC and
// leaves the mode as the handler left it.
func (cpu *Cpu) Interrupt(number uint8) (err error) {
	handler, err := cpu.Vector(number)
	if err != nil {
		return
	}

	err = cpu.stack.Interrupt(cpu.pc)
	if err != nil {
		return
	}

	if cpu.Verbose {
		log.Printf("cpu: interrupt %d from %04x to %04x", number, cpu.pc, handler)
	}

	cpu.pc = handler
	cpu.mode = MODE_PRIVILEGED
	return
}
