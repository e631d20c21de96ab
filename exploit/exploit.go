// Package exploit inspects a halted CPU for signs of a successful exploit.
//
// Each rule is a Starlark expression evaluated against a snapshot of the
// CPU. A rule whose expression is true is reported as a finding.
//
// The following names are visible to a rule:
//
//	regs              list of register values
//	mem               list of physical memory words
//	pc                program counter
//	privileged        True in privileged mode
//	stack             operand stack, bottom first
//	return_stack      shadow return-address stack, bottom first
//	stack_depth       len(stack)
//	stack_limit       operand stack depth limit
//	ras_mismatch      RETs that disagreed with the shadow stack
//	memory_size       len(mem)
//	instruction_count instructions executed since reset
//	ports             latched port values
//	cache             cache slots
//	halt              halt reason, or "" if the CPU did not run
//	fault             fault kind name, or "" if there was no fault
//	fault_value       value carried by the fault
package exploit

import (
	"errors"
	"io"
	"log"
	"slices"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/minicpu/cpu"
)

// Rule is a named exploit condition.
type Rule struct {
	Name string // Exploit category.
	Expr string // Starlark boolean expression.
}

// String returns the message reported when the rule matches.
func (rule Rule) String() string {
	return f("%v Exploit Successful!", rule.Name)
}

// DefaultRules are the classic exploit checks.
var DefaultRules = []Rule{
	{"Buffer Overflow", `fault == "out of range memory" or len(mem) > memory_size`},
	{"Arbitrary Code Execution", `len(mem) > 1000 and mem[1000] == 0xDEADBEEF`},
	{"Uninitialized Memory", `len(regs) > 7 and regs[7] != 0`},
	{"Lack of Input Validation", `pc >= memory_size`},
	{"Division by Zero", `fault == "division by zero" or (regs[2] == 0 and regs[1] != 0)`},
	{"Speculative Execution", `len(mem) > 500 and mem[500] == 0xCAFEBABE`},
	{"Cache Side-Channel", `regs[1] == 0x1234`},
	{"Privilege Escalation", `privileged`},
	{"Stack Overflow", `fault == "stack overflow" or stack_depth > stack_limit`},
	{"Return Address Manipulation", `pc == 0x1234 or ras_mismatch > 0`},
}

// Checker evaluates rules against CPU snapshots.
type Checker struct {
	Verbose bool   // If set, logs every rule evaluation.
	Rules   []Rule // Rules to evaluate, in order.
}

// NewChecker creates a checker over rules, or DefaultRules if none are
// given.
func NewChecker(rules ...Rule) *Checker {
	if len(rules) == 0 {
		rules = DefaultRules
	}

	return &Checker{
		Rules: slices.Clone(rules),
	}
}

// Check evaluates every rule against state. report may be nil if the CPU
// has not been run. Rules that fail to evaluate are returned as a joined
// error; the remaining rules are still checked.
func (ck *Checker) Check(state cpu.State, report *cpu.Report) (found []Rule, err error) {
	env := Environment(state, report)

	var errs []error
	for _, rule := range ck.Rules {
		matched, rule_err := Eval(rule.Expr, env)
		if rule_err != nil {
			errs = append(errs, &ErrRule{Rule: rule.Name, Err: rule_err})
			continue
		}

		if ck.Verbose {
			log.Printf("exploit: %v: %v", rule.Name, matched)
		}

		if matched {
			found = append(found, rule)
		}
	}

	err = errors.Join(errs...)
	return
}

// Environment builds the frozen rule environment for a snapshot.
func Environment(state cpu.State, report *cpu.Report) (env starlark.StringDict) {
	halt := ""
	fault := ""
	fault_value := uint32(0)
	if report != nil {
		halt = report.Reason.String()
		if report.Fault != nil {
			fault = report.Fault.Kind.String()
			fault_value = report.Fault.Value
		}
	}

	env = starlark.StringDict{
		"regs":              words(state.Registers),
		"mem":               words(state.Memory),
		"pc":                starlark.MakeUint64(uint64(state.Pc)),
		"privileged":        starlark.Bool(state.Mode == cpu.MODE_PRIVILEGED),
		"stack":             words(state.Stack),
		"return_stack":      words(state.ReturnStack),
		"stack_depth":       starlark.MakeInt(len(state.Stack)),
		"stack_limit":       starlark.MakeInt(state.StackLimit),
		"ras_mismatch":      starlark.MakeInt(state.ReturnMismatches),
		"memory_size":       starlark.MakeInt(len(state.Memory)),
		"instruction_count": starlark.MakeUint64(state.InstructionCount),
		"ports":             words(state.Ports),
		"cache":             words(state.Cache),
		"halt":              starlark.String(halt),
		"fault":             starlark.String(fault),
		"fault_value":       starlark.MakeUint64(uint64(fault_value)),
	}
	env.Freeze()

	return
}

func words(data []uint32) *starlark.List {
	elems := make([]starlark.Value, len(data))
	for n, word := range data {
		elems[n] = starlark.MakeUint64(uint64(word))
	}
	return starlark.NewList(elems)
}

// Eval evaluates a single rule expression in env.
func Eval(expr string, env starlark.StringDict) (matched bool, err error) {
	thread := &starlark.Thread{Name: "exploit"}
	opts := syntax.FileOptions{}

	value, err := starlark.EvalOptions(&opts, thread, "rule", expr, env)
	if err != nil {
		return
	}

	matched = bool(value.Truth())
	return
}

// LoadRules reads a Starlark file that assigns a list of
// (name, expression) pairs to 'rules'.
func LoadRules(input io.Reader, filename string) (rules []Rule, err error) {
	src, err := io.ReadAll(input)
	if err != nil {
		return
	}

	thread := &starlark.Thread{Name: "rules"}
	opts := syntax.FileOptions{}
	globals, err := starlark.ExecFileOptions(&opts, thread, filename, src, nil)
	if err != nil {
		return
	}

	value, ok := globals["rules"]
	if !ok {
		err = ErrRulesMissing
		return
	}

	list, ok := value.(*starlark.List)
	if !ok {
		err = ErrRulesMissing
		return
	}

	for n := range list.Len() {
		pair, ok := list.Index(n).(starlark.Tuple)
		if !ok || len(pair) != 2 {
			err = ErrRuleInvalid(n)
			return
		}
		name, ok := starlark.AsString(pair[0])
		if !ok {
			err = ErrRuleInvalid(n)
			return
		}
		expr, ok := starlark.AsString(pair[1])
		if !ok {
			err = ErrRuleInvalid(n)
			return
		}
		if _, err = syntax.ParseExpr(filename, expr, 0); err != nil {
			err = &ErrRule{Rule: name, Err: err}
			return
		}
		rules = append(rules, Rule{Name: name, Expr: expr})
	}

	return
}
