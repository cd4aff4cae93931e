// Package apperr defines the typed error taxonomy shared by all services.
//
// Every caller-visible failure carries a stable Kind plus a human-readable
// message. Internal details (SQL, stack traces) stay in the wrapped cause
// and are never serialized to clients.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-readable error category
type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindInvalidTransition Kind = "invalid_transition"
	KindConflict          Kind = "conflict"
	KindInternal          Kind = "internal"
)

// Error is a typed application error
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause
func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a typed error with a message
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a typed error with a formatted message
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a typed kind and message to an underlying cause
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the Kind from an error chain, defaulting to KindInternal
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// MessageOf extracts the caller-safe message from an error chain.
// Untyped errors yield a generic message so internals never leak.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal server error"
}

// Is reports whether the error chain carries the given kind
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// IsNotFound reports whether the error is a not-found error
func IsNotFound(err error) bool { return Is(err, KindNotFound) }

// IsForbidden reports whether the error is a forbidden error
func IsForbidden(err error) bool { return Is(err, KindForbidden) }

// IsConflict reports whether the error is a conflict error
func IsConflict(err error) bool { return Is(err, KindConflict) }
