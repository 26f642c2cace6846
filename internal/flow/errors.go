package flow

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a node, entry or variable cannot be found.
var ErrNotFound = errors.New("not found")

// DuplicateNodeError is returned when an entry is added next to a sibling
// of the same name.
type DuplicateNodeError struct {
	Parent   string
	New      string
	Existing string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("Cannot add node '%s' to %s: duplicates '%s'", e.New, e.Parent, e.Existing)
}

// GenerateError reports a tree that cannot be turned into a definition or
// a job script.
type GenerateError struct {
	Msg string
	Err error
}

func (e *GenerateError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *GenerateError) Unwrap() error { return e.Err }

func generateErrorf(format string, args ...any) *GenerateError {
	return &GenerateError{Msg: fmt.Sprintf(format, args...)}
}

// InvariantError is the panic value used when extern nodes are generated,
// deployed or played, or when builder scopes are not closed in order.
// These are programming errors in the code building the suite.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return e.Msg }

func invariant(msg string) {
	panic(&InvariantError{Msg: msg})
}

// VariableError is returned when a variable lookup without default fails.
type VariableError struct {
	Name string
}

func (e *VariableError) Error() string {
	return fmt.Sprintf("Variable %s is not defined", e.Name)
}

func (e *VariableError) Unwrap() error { return ErrNotFound }
