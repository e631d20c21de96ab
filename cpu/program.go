package cpu

import (
	"iter"
)

// Line is a line of assembled source with the words it generated.
type Line struct {
	LineNo int      // Source line number.
	Ip     int      // Address of the first generated word.
	Words  []string // Source words, after equate expansion.
	Codes  []Code   // Generated words.
	Links  []string // Label to link into each word, or "".
}

// Program is an assembled listing.
type Program struct {
	Lines []Line
}

type Debug struct {
	*Line
	Index int
}

// Debug finds the source line that generated the word at ip.
func (prog *Program) Debug(ip uint32) (dbg Debug) {
	for n, line := range prog.Lines {
		if ip >= uint32(line.Ip) && ip < uint32(line.Ip+len(line.Codes)) {
			dbg = Debug{
				Line:  &prog.Lines[n],
				Index: int(ip - uint32(line.Ip)),
			}
			break
		}
	}

	return
}

// Binary returns the program image from address 0. Gaps left by .org are
// zero filled.
func (prog *Program) Binary() (bins []uint32) {
	for ip, code := range prog.Codes() {
		for uint32(len(bins)) < ip {
			bins = append(bins, 0)
		}
		bins = append(bins, uint32(code))
	}

	return
}

// Codes iterates over every generated word and its address.
func (prog *Program) Codes() iter.Seq2[uint32, Code] {
	return func(yield func(ip uint32, code Code) bool) {
		for _, line := range prog.Lines {
			ip := uint32(line.Ip)
			for n, code := range line.Codes {
				if !yield(ip+uint32(n), code) {
					return
				}
			}
		}
	}
}

// ProgramOf wraps a raw image, one line per word, so that runtime faults
// can still be mapped back to a word index.
func ProgramOf(words []uint32) (prog *Program) {
	prog = &Program{}
	for n, word := range words {
		prog.Lines = append(prog.Lines, Line{
			LineNo: n + 1,
			Ip:     n,
			Codes:  []Code{Code(word)},
		})
	}
	return
}
