package io

import (
	"io"
)

// Tape is a byte stream device. IN reads the next input byte, or
// 0xFFFFFFFF at end of input. OUT writes the low byte of the word.
type Tape struct {
	Input  io.Reader
	Output io.Writer

	Read    int // Bytes read.
	Written int // Bytes written.
}

var _ Device = (*Tape)(nil)

// Rewind resets the counters. Tapes do not seek.
func (tc *Tape) Rewind() {
	tc.Read = 0
	tc.Written = 0
}

func (tc *Tape) In() uint32 {
	if tc.Input == nil {
		return ^uint32(0)
	}

	var one [1]byte
	_, err := io.ReadFull(tc.Input, one[:])
	if err != nil {
		return ^uint32(0)
	}

	tc.Read++
	return uint32(one[0])
}

func (tc *Tape) Out(value uint32) {
	if tc.Output == nil {
		return
	}

	n, _ := tc.Output.Write([]byte{byte(value)})
	tc.Written += n
}
