package cpu

import (
	"errors"

	"github.com/ezrec/minicpu/translate"
)

var f = translate.From

// FaultKind classifies a rule violation raised by the core.
type FaultKind int

//go:generate go tool stringer -linecomment -type=FaultKind
const (
	FAULT_OUT_OF_RANGE_MEMORY    = FaultKind(0)  // out of range memory
	FAULT_OUT_OF_RANGE_PAGE      = FaultKind(1)  // out of range page
	FAULT_PAGE                   = FaultKind(2)  // page fault
	FAULT_PERMISSION             = FaultKind(3)  // permission fault
	FAULT_PRIVILEGE              = FaultKind(4)  // privilege fault
	FAULT_STACK_OVERFLOW         = FaultKind(5)  // stack overflow
	FAULT_STACK_UNDERFLOW        = FaultKind(6)  // stack underflow
	FAULT_DIVISION_BY_ZERO       = FaultKind(7)  // division by zero
	FAULT_INVALID_OPCODE         = FaultKind(8)  // invalid opcode
	FAULT_INVALID_REGISTER       = FaultKind(9)  // invalid register
	FAULT_OUT_OF_RANGE_PORT      = FaultKind(10) // out of range port
	FAULT_OUT_OF_RANGE_INTERRUPT = FaultKind(11) // out of range interrupt
)

// FaultKinds lists every fault kind, in order.
var FaultKinds = []FaultKind{
	FAULT_OUT_OF_RANGE_MEMORY,
	FAULT_OUT_OF_RANGE_PAGE,
	FAULT_PAGE,
	FAULT_PERMISSION,
	FAULT_PRIVILEGE,
	FAULT_STACK_OVERFLOW,
	FAULT_STACK_UNDERFLOW,
	FAULT_DIVISION_BY_ZERO,
	FAULT_INVALID_OPCODE,
	FAULT_INVALID_REGISTER,
	FAULT_OUT_OF_RANGE_PORT,
	FAULT_OUT_OF_RANGE_INTERRUPT,
}

// Fault is a typed rule violation. Value is the offending address, page,
// register, port or interrupt number, depending on Kind.
type Fault struct {
	Kind  FaultKind
	Value uint32
}

func (ft *Fault) Error() string {
	return f("%v (0x%x)", ft.Kind.String(), ft.Value)
}

// Is matches any fault of the same kind.
func (ft *Fault) Is(err error) bool {
	other, ok := err.(*Fault)
	return ok && other.Kind == ft.Kind
}

func fault(kind FaultKind, value uint32) *Fault {
	return &Fault{Kind: kind, Value: value}
}

// FaultOf returns the fault carried by err, if any.
func FaultOf(err error) (ft *Fault, ok bool) {
	ok = errors.As(err, &ft)
	return
}

var (
	// Fault sentinels, for use with errors.Is()
	ErrOutOfRangeMemory    = fault(FAULT_OUT_OF_RANGE_MEMORY, 0)
	ErrOutOfRangePage      = fault(FAULT_OUT_OF_RANGE_PAGE, 0)
	ErrPageFault           = fault(FAULT_PAGE, 0)
	ErrPermission          = fault(FAULT_PERMISSION, 0)
	ErrPrivilege           = fault(FAULT_PRIVILEGE, 0)
	ErrStackOverflow       = fault(FAULT_STACK_OVERFLOW, 0)
	ErrStackUnderflow      = fault(FAULT_STACK_UNDERFLOW, 0)
	ErrDivisionByZero      = fault(FAULT_DIVISION_BY_ZERO, 0)
	ErrInvalidOpcode       = fault(FAULT_INVALID_OPCODE, 0)
	ErrInvalidRegister     = fault(FAULT_INVALID_REGISTER, 0)
	ErrOutOfRangePort      = fault(FAULT_OUT_OF_RANGE_PORT, 0)
	ErrOutOfRangeInterrupt = fault(FAULT_OUT_OF_RANGE_INTERRUPT, 0)

	// Host errors
	ErrNotPaged = errors.New(f("translator is not paged"))
	ErrNotFlat  = errors.New(f("translator is not flat"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeMissing      = errors.New(f("opcode missing"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrOperandRange       = errors.New(f("operand out of range"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

// ErrOpcode annotates a fault with the instruction that raised it.
type ErrOpcode Code

func (eo ErrOpcode) Error() string {
	return f("opcode 0x%08x %v", uint32(eo), Code(eo).String())
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
