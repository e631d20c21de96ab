package io

import (
	"errors"

	"github.com/ezrec/minicpu/translate"
)

var f = translate.From

var (
	ErrPortInvalid = errors.New(f("port invalid"))
)

// ErrHexLine describes a program text line that was not a hex word.
type ErrHexLine struct {
	LineNo int
	Line   string
}

func (err ErrHexLine) Error() string {
	return f("line %d '%v' is not a hex word", err.LineNo, err.Line)
}
