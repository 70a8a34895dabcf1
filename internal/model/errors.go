package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a workflow failure.
type ErrorKind string

const (
	ErrInvalidInput         ErrorKind = "invalid_input"
	ErrInvalidRange         ErrorKind = "invalid_range"
	ErrInvalidTickAlignment ErrorKind = "invalid_tick_alignment"
	ErrOutOfRange           ErrorKind = "out_of_range"
	ErrInvalidPosition      ErrorKind = "invalid_position"
	ErrNotFound             ErrorKind = "not_found"
	ErrNetwork              ErrorKind = "network_error"
	ErrTransactionReverted  ErrorKind = "transaction_reverted"
	ErrUnknown              ErrorKind = "unknown_error"
)

// WorkflowError carries the classified kind, the operation that was in
// flight, and the underlying cause.
type WorkflowError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *WorkflowError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Errorf builds a classified error for the given operation.
func Errorf(kind ErrorKind, op, format string, args ...interface{}) error {
	return &WorkflowError{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// WrapError classifies an existing error, preserving the cause chain.
// An already-classified error keeps its kind; only the outermost
// operation name is recorded.
func WrapError(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	var inner *WorkflowError
	if errors.As(err, &inner) {
		kind = inner.Kind
	}
	return &WorkflowError{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the classified kind, or ErrUnknown for a plain error.
func KindOf(err error) ErrorKind {
	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr.Kind
	}
	return ErrUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
