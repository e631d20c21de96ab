package exploit

import (
	"errors"

	"github.com/ezrec/minicpu/translate"
)

var f = translate.From

var (
	ErrRulesMissing = errors.New(f("'rules' list missing"))
)

// ErrRuleInvalid is the index of a rules entry that is not a
// (name, expression) pair of strings.
type ErrRuleInvalid int

func (err ErrRuleInvalid) Error() string {
	return f("rule %d is not a (name, expression) pair", int(err))
}

// ErrRule is a rule that could not be parsed or evaluated.
type ErrRule struct {
	Rule string
	Err  error
}

func (err *ErrRule) Error() string {
	return f("rule '%v' %v", err.Rule, err.Err)
}

func (err *ErrRule) Unwrap() error {
	return err.Err
}
