package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced by the store wraps exactly one of
// these, so callers can branch with errors.Is without depending on message
// text.
var (
	// ErrInvalidArgument signals an empty or malformed input field.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState signals an operation against an entity not in the
	// required lifecycle stage.
	ErrInvalidState = errors.New("invalid state")
	// ErrNotFound signals a lookup by id with no matching document.
	ErrNotFound = errors.New("not found")
	// ErrResourceLimitExceeded signals a requested page size over the
	// configured threshold.
	ErrResourceLimitExceeded = errors.New("resource limit exceeded")
	// ErrConflict signals a duplicate experiment name. Detected by a
	// pre-check query, not an atomic constraint.
	ErrConflict = errors.New("conflict")
)

// Error couples an error kind with a human-readable message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Kind.Error() + ": " + e.Message }
func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds an *Error of the given kind with a formatted message.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
