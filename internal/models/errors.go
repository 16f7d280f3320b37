package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidState          = errors.New("invalid state")
	ErrDiscountExceedsAmount = errors.New("discount exceeds amount")
	ErrNegativeAmount        = errors.New("negative amount")
)

// TransitionError reports an action attempted from a status that does not allow it.
type TransitionError struct {
	Entity string
	Action string
	From   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s from status %q", e.Entity, e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidState }

type transition[S ~string] struct {
	from []S
	to   S
}

func (t transition[S]) allows(s S) bool {
	for _, f := range t.from {
		if f == s {
			return true
		}
	}
	return false
}
