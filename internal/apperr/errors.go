// Package apperr defines the error taxonomy shared by every layer.
//
// Failures are values: each operation returns an *Error whose Kind tells the
// caller how to react and whose Reason is short enough to be read aloud.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// KindInternal is an unexpected fault (I/O, storage).
	KindInternal Kind = iota
	// KindUnavailable means the index is absent or a capability is unreachable.
	KindUnavailable
	// KindNotFound means the index answered but had nothing relevant.
	KindNotFound
	// KindInvalidTransition means a session command violated a precondition.
	KindInvalidTransition
	// KindExtraction means the structured plan could not be produced.
	KindExtraction
	// KindInvalidInput means the caller supplied a malformed argument.
	KindInvalidInput
)

// String returns a human-readable kind.
func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindNotFound:
		return "not_found"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindExtraction:
		return "extraction"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// Sentinel errors used across layers.
var (
	ErrNoDocuments    = errors.New("no documents")
	ErrSuperseded     = errors.New("superseded by a newer index request")
	ErrIndexAbsent    = errors.New("no cookbook indexed")
	ErrNoPlanActive   = errors.New("no recipe plan active")
	ErrNotCooking     = errors.New("not in cooking mode")
	ErrAlreadyCooking = errors.New("already cooking")
	ErrAtFirstStep    = errors.New("already at the first step")
	ErrStepOutOfRange = errors.New("step index out of range")
	ErrNoStructure    = errors.New("no structure found")
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
)

// Error is a classified failure with a narratable reason.
type Error struct {
	Kind   Kind
	Op     string
	Reason string
	Err    error
}

// Error implements error.
func (e *Error) Error() string {
	if e.Op == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error. reason defaults to the cause's message.
func New(kind Kind, op string, cause error, reason string) *Error {
	if reason == "" && cause != nil {
		reason = cause.Error()
	}
	return &Error{Kind: kind, Op: op, Reason: reason, Err: cause}
}

// KindOf reports the Kind of err, or KindInternal if err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Reason returns the narratable reason carried by err.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return err.Error()
}
