package cpu

import (
	"fmt"
)

// Opcode is the operation selected by the top byte of an instruction word.
type Opcode int

//go:generate go tool stringer -linecomment -type=Opcode
const (
	OP_LOAD             = Opcode(0x01) // load
	OP_STORE            = Opcode(0x02) // store
	OP_ADD              = Opcode(0x03) // add
	OP_SUB              = Opcode(0x04) // sub
	OP_MUL              = Opcode(0x05) // mul
	OP_DIV              = Opcode(0x06) // div
	OP_JUMP             = Opcode(0x07) // jump
	OP_JUMP_IF_ZERO     = Opcode(0x08) // jz
	OP_PUSH             = Opcode(0x09) // push
	OP_POP              = Opcode(0x0a) // pop
	OP_CALL             = Opcode(0x0b) // call
	OP_RET              = Opcode(0x0c) // ret
	OP_SYS              = Opcode(0x0d) // sys
	OP_CACHE_READ       = Opcode(0x0e) // cread
	OP_CACHE_WRITE      = Opcode(0x0f) // cwrite
	OP_PRIVILEGED       = Opcode(0x10) // priv
	OP_ENTER_PRIVILEGED = Opcode(0x11) // enter
	OP_EXIT_PRIVILEGED  = Opcode(0x12) // exit
	OP_IN               = Opcode(0x13) // in
	OP_OUT              = Opcode(0x14) // out
	OP_INT              = Opcode(0x15) // int
)

// Sub-operations of OP_SYS, selected by operand1.
const (
	SYS_PRINT_REG = 0x01 // Report register[operand2].
	SYS_PRINT_MEM = 0x02 // Report mem[translate(operand2)].
)

// Code is a single 32-bit instruction word:
//
//	[opcode:8][operand1:8][operand2:8][operand3:8]
type Code uint32

// MakeCode assembles an instruction word from its fields.
func MakeCode(op Opcode, a, b, c uint8) Code {
	return Code(uint32(op&0xff)<<24 | uint32(a)<<16 | uint32(b)<<8 | uint32(c))
}

// Opcode returns bits 31-24.
func (code Code) Opcode() Opcode {
	return Opcode(code >> 24)
}

// Operands returns bits 23-16, 15-8 and 7-0.
func (code Code) Operands() (a, b, c uint8) {
	a = uint8(code >> 16)
	b = uint8(code >> 8)
	c = uint8(code)
	return
}

// Decode splits a word into opcode and operands.
func Decode(word uint32) (op Opcode, a, b, c uint8) {
	code := Code(word)
	op = code.Opcode()
	a, b, c = code.Operands()
	return
}

// String returns the disassembly of the instruction.
func (code Code) String() string {
	op := code.Opcode()
	a, b, _ := code.Operands()

	switch op {
	case OP_LOAD, OP_STORE, OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_JUMP_IF_ZERO:
		return fmt.Sprintf("%v r%d r%d", op, a, b)
	case OP_JUMP, OP_PUSH, OP_POP, OP_CALL:
		return fmt.Sprintf("%v r%d", op, a)
	case OP_RET, OP_PRIVILEGED, OP_ENTER_PRIVILEGED, OP_EXIT_PRIVILEGED:
		return op.String()
	case OP_SYS:
		switch a {
		case SYS_PRINT_REG:
			return fmt.Sprintf("%v reg %d", op, b)
		case SYS_PRINT_MEM:
			return fmt.Sprintf("%v mem %#x", op, b)
		}
		return fmt.Sprintf("%v %#x %#x", op, a, b)
	case OP_CACHE_READ, OP_CACHE_WRITE:
		return fmt.Sprintf("%v %d r%d", op, a, b)
	case OP_IN, OP_OUT:
		return fmt.Sprintf("%v r%d %d", op, a, b)
	case OP_INT:
		return fmt.Sprintf("%v %d", op, a)
	}

	return fmt.Sprintf(".word 0x%08x", uint32(code))
}
