// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":           "0",
	"STACK_LIMIT":      fmt.Sprintf("%d", STACK_LIMIT),
	"PAGE_SIZE":        fmt.Sprintf("%d", PAGE_SIZE),
	"PAGE_COUNT":       fmt.Sprintf("%d", PAGE_COUNT),
	"CACHE_SIZE":       fmt.Sprintf("%d", CACHE_SIZE),
	"MAX_INSTRUCTIONS": fmt.Sprintf("%d", MAX_INSTRUCTIONS),
}

var (
	charRegexp  = regexp.MustCompile(`'\\?[^']'`)
	parenRegexp = regexp.MustCompile(`\$\([^\$]*\)`)
	labelRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Assembler is a single pass macro assembler for the instruction set.
type Assembler struct {
	Verbose bool   // If set, verbosely logs the assembler actions.
	Lines   []Line // List of generated lines.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	origin int // Address set by .org, if beyond the current address.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// mnemonic maps instruction names to opcodes.
var mnemonic = func() map[string]Opcode {
	names := map[string]Opcode{}
	for op := OP_LOAD; op <= OP_INT; op++ {
		names[op.String()] = op
	}
	return names
}()

// sysMap maps SYS sub-operation names.
var sysMap = map[string]uint8{
	"reg": SYS_PRINT_REG,
	"mem": SYS_PRINT_MEM,
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}
	if len(word) == 0 {
		err = ErrParseNumber("~")
		return
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(strings.Trim(word, "'"))
		return
	}
	v64, err := strconv.ParseInt(word, 0, 33)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 <= 0xffffffff && v64 >= -int64(0x80000000) {
		if v64 < 0 {
			value = uint32(0xffffffff + (v64 + 1))
		} else {
			value = uint32(v64)
		}
	}

	if invert {
		value = ^value
	}

	return
}

// byteOf returns an 8-bit operand value.
func (asm *Assembler) byteOf(word string) (value uint8, err error) {
	v32, err := asm.valueOf(word)
	if err != nil {
		return
	}

	if v32 > 0xff {
		err = ErrOperandRange
		return
	}

	value = uint8(v32)
	return
}

// registerOf returns a register number from "rN".
func (asm *Assembler) registerOf(word string) (reg uint8, err error) {
	if len(word) < 2 || word[0] != 'r' {
		err = ErrRegisterInvalid
		return
	}

	n, err := strconv.ParseUint(word[1:], 10, 8)
	if err != nil {
		err = ErrRegisterInvalid
		return
	}

	reg = uint8(n)
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value32 uint32
		value32, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(int(value32))
	}
	err = nil
	for key, ip := range asm.Label {
		pred[key] = starlark.MakeInt(ip)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = charRegexp.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = parenRegexp.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	words = slices.DeleteFunc(strings.Fields(line), func(a string) bool { return len(a) == 0 })

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentIp()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		// '@' makes labels local to this invocation.
		local := fmt.Sprintf("%v_%v_", name, lineno)
		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}
		words = nil
		return
	}

	return
}

// currentIp gets the current Ip
func (asm *Assembler) currentIp() int {
	ip := 0
	if len(asm.Lines) != 0 {
		last := asm.Lines[len(asm.Lines)-1]
		ip = last.Ip + len(last.Codes)
	}

	return max(ip, asm.origin)
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Label = make(map[string]int, 16)
	asm.Lines = asm.Lines[:0]
	asm.origin = 0
	asm.Macro = make(map[string](*Macro))
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("asm: %v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	if err = scanner.Err(); err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of labels.
	for n := range asm.Lines {
		ln := &asm.Lines[n]
		for index, label := range ln.Links {
			if len(label) == 0 {
				continue
			}
			ip, ok := asm.Label[label]
			if !ok {
				lineno = ln.LineNo
				line = strings.Join(ln.Words, " ")
				err = ErrLabelMissing(label)
				return
			}
			ln.Codes[index] = Code(ip)
		}
	}

	prog = &Program{
		Lines: slices.Clone(asm.Lines),
	}

	return
}

// wordOrLabel returns a data word, or a label to link.
func (asm *Assembler) wordOrLabel(word string) (value uint32, label string, err error) {
	value, err = asm.valueOf(word)
	if err == nil {
		return
	}

	if ip, ok := asm.Label[word]; ok {
		value = uint32(ip)
		err = nil
		return
	}

	if labelRegexp.MatchString(word) {
		label = word
		err = nil
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Code
	var links []string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words
	ip := asm.currentIp()

	defer func() {
		if len(codes) == 0 {
			return
		}
		if len(links) == 0 {
			links = make([]string, len(codes))
		}
		asm.Lines = append(asm.Lines, Line{LineNo: lineno, Ip: ip, Words: initial_words, Codes: codes, Links: links})
	}()

	switch words[0] {
	case ".org":
		if len(words) != 2 {
			err = ErrOpcodeValueMissing
			return
		}
		var addr uint32
		addr, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		if int(addr) < ip {
			err = ErrOperandRange
			return
		}
		asm.origin = int(addr)
		return
	case ".word":
		if len(words) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		for _, word := range words[1:] {
			var value uint32
			var label string
			value, label, err = asm.wordOrLabel(word)
			if err != nil {
				return
			}
			codes = append(codes, Code(value))
			links = append(links, label)
		}
		return
	}

	op, ok := mnemonic[words[0]]
	if !ok {
		err = ErrInstructionInvalid
		return
	}

	args := words[1:]
	var a, b uint8

	need := func(n int) bool {
		switch {
		case len(args) < n:
			err = ErrOpcodeMissing
		case len(args) > n:
			err = ErrOpcodeExtraArgs
		}
		return err == nil
	}

	switch op {
	case OP_LOAD, OP_STORE, OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_JUMP_IF_ZERO:
		if !need(2) {
			return
		}
		if a, err = asm.registerOf(args[0]); err != nil {
			return
		}
		if b, err = asm.registerOf(args[1]); err != nil {
			return
		}
	case OP_JUMP, OP_PUSH, OP_POP, OP_CALL:
		if !need(1) {
			return
		}
		if a, err = asm.registerOf(args[0]); err != nil {
			return
		}
	case OP_RET, OP_PRIVILEGED, OP_ENTER_PRIVILEGED, OP_EXIT_PRIVILEGED:
		if !need(0) {
			return
		}
	case OP_SYS:
		if !need(2) {
			return
		}
		var known bool
		if a, known = sysMap[args[0]]; !known {
			if a, err = asm.byteOf(args[0]); err != nil {
				return
			}
		}
		if b, err = asm.registerOf(args[1]); err != nil {
			if b, err = asm.byteOf(args[1]); err != nil {
				return
			}
		}
	case OP_CACHE_READ, OP_CACHE_WRITE:
		if !need(2) {
			return
		}
		if a, err = asm.byteOf(args[0]); err != nil {
			return
		}
		if b, err = asm.registerOf(args[1]); err != nil {
			return
		}
	case OP_IN, OP_OUT:
		if !need(2) {
			return
		}
		if a, err = asm.registerOf(args[0]); err != nil {
			return
		}
		if b, err = asm.byteOf(args[1]); err != nil {
			return
		}
	case OP_INT:
		if !need(1) {
			return
		}
		if a, err = asm.byteOf(args[0]); err != nil {
			return
		}
	}

	codes = append(codes, MakeCode(op, a, b, 0))

	return
}
