package store

import (
	"errors"
	"fmt"
)

// Error is a store-level error with an optional underlying cause.
type Error struct {
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target matches this error, so errors.Is works against
// the sentinels below even after WithCause.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Message == t.Message
	}
	return false
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Message: e.Message,
		Err:     err,
	}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Message: "resource already exists",
	}

	ErrInvalidInput = &Error{
		Message: "invalid input",
	}

	// ErrTagUnresolved indicates a tag association could not be resolved to a
	// global tag row that the same reconciliation just looked up or inserted.
	// This is a broken programming contract, not a user-facing condition.
	ErrTagUnresolved = &Error{
		Message: "tag has no resolvable global row",
	}
)
