package io

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseHexWord parses a single instruction word, ie "0301_0200",
// "03 01 02 00" or "0x03010200". Spaces and underscores are ignored.
func ParseHexWord(text string) (word uint32, ok bool) {
	text = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '_' {
			return -1
		}
		return r
	}, text)
	text = strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")

	if len(text) == 0 || len(text) > 8 {
		return
	}

	value, err := strconv.ParseUint(text, 16, 32)
	if err != nil {
		return
	}

	word = uint32(value)
	ok = true
	return
}

// ParseHexFields parses whitespace separated words, ie a line typed by a
// user. Fields that are not words are skipped and returned.
func ParseHexFields(text string) (words []uint32, skipped []string) {
	for _, field := range strings.Fields(text) {
		word, ok := ParseHexWord(field)
		if !ok {
			skipped = append(skipped, field)
			continue
		}
		words = append(words, word)
	}
	return
}

// ReadHex reads program text, one word per line. Blank lines and ';'
// comments are ignored. Malformed lines are skipped and reported, they do
// not reject the program.
func ReadHex(input io.Reader) (words []uint32, skipped []ErrHexLine, err error) {
	scanner := bufio.NewScanner(input)

	var lineno int
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(strings.SplitN(scanner.Text(), ";", 2)[0])
		if len(line) == 0 {
			continue
		}

		word, ok := ParseHexWord(line)
		if !ok {
			skipped = append(skipped, ErrHexLine{LineNo: lineno, Line: line})
			continue
		}
		words = append(words, word)
	}

	err = scanner.Err()
	return
}

// WriteHex writes one 8 digit word per line.
func WriteHex(output io.Writer, words []uint32) (err error) {
	w := bufio.NewWriter(output)
	for _, word := range words {
		_, err = fmt.Fprintf(w, "%08X\n", word)
		if err != nil {
			return
		}
	}

	err = w.Flush()
	return
}
