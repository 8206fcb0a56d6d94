package domain

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of a failure.
type ErrorKind string

const (
	// KindInputRejected marks a prompt blocked before any backend call.
	KindInputRejected ErrorKind = "input_rejected"

	// KindCapabilityFailure marks a failed capability execution.
	KindCapabilityFailure ErrorKind = "capability_failure"

	// KindBackendFailure marks a failed or unparseable inference call.
	KindBackendFailure ErrorKind = "backend_failure"

	// KindConfiguration marks a missing dependency or malformed construction.
	// It is the only kind that escapes as a hard failure.
	KindConfiguration ErrorKind = "configuration"
)

var (
	// ErrCapabilityNotFound is returned by lookups of unregistered capabilities.
	ErrCapabilityNotFound = errors.New("unknown capability")

	// ErrMissingDependency is wrapped by constructors given a nil collaborator.
	ErrMissingDependency = errors.New("missing required dependency")
)

// Error is a categorised failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a categorised error.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// ErrMissing reports a nil required dependency at construction time.
func ErrMissing(name string) *Error {
	return NewError(KindConfiguration, name+" is required", ErrMissingDependency)
}

// KindOf returns the kind of err, or "" when err is not a categorised error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
