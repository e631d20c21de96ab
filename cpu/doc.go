// Package cpu implements a minimal fetch-decode-execute machine and its
// assembler.
//
// The machine has a register file, a word addressed memory behind either a
// page table (with read, write and execute permissions per page) or a flat
// identity map (with a protection bit per word), a user/privileged mode
// flag, a bounded operand stack with a shadow return-address stack, a
// single-bit branch predictor with a branch target buffer, a slot addressed
// scratch cache, I/O ports and a vectored interrupt table.
//
// Instruction words are 32 bits: [opcode:8][operand1:8][operand2:8][operand3:8].
// Every rule violation is returned as a *Fault; nothing panics on program
// input.
//
// The assembler provides a small assembly language for the instruction set,
// supporting macros, labels, equates, data words and compile-time
// expression evaluation.
package cpu
