// Package errs classifies orchestration failures so callers can tell an
// invalid request from a provider outage without parsing messages.
package errs

import (
	"errors"
	"fmt"
)

// Kind is the coarse failure class surfaced to API clients.
type Kind string

const (
	KindInvalid         Kind = "invalid"
	KindUnauthenticated Kind = "unauthenticated"
	KindConflict        Kind = "conflict"
	KindUpstream        Kind = "upstream"
	KindMissingResult   Kind = "missing_result"
	KindInternal        Kind = "internal"
)

// Error is a classified failure of one named operation.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a classified error. An already classified err keeps its kind
// unless kind is non-empty.
func E(op string, kind Kind, err error) *Error {
	if kind == "" {
		kind = KindOf(err)
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Msg is E with a plain message instead of a cause.
func Msg(op string, kind Kind, msg string) *Error {
	return &Error{Op: op, Kind: kind, Err: errors.New(msg)}
}

// KindOf returns the kind of the outermost classified error in the chain,
// or KindInternal when err is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e.Kind != "" {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FromPanic converts a recovered panic value into an internal error.
func FromPanic(op string, r any) *Error {
	return &Error{Op: op, Kind: KindInternal, Err: fmt.Errorf("panic: %v", r)}
}
