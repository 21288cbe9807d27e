package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindInvalidInput   Kind = "invalid_input"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindMissingContext Kind = "missing_context"
	KindUpstream       Kind = "upstream"
)

// Error is the structured failure returned by core services. Validation
// errors are raised before any mutation; Conflict checks short-circuit
// before DDL runs.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is match on kind via sentinel values built with Kind only.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// KindOf extracts the kind of err, or "" for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Invalidf builds an invalid-input error.
func Invalidf(format string, args ...any) *Error {
	return newError(KindInvalidInput, format, args...)
}

// NotFoundf builds a not-found error.
func NotFoundf(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

// Conflictf builds a conflict error.
func Conflictf(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

// MissingContextf builds a missing-context error (e.g. no acting user id).
func MissingContextf(format string, args ...any) *Error {
	return newError(KindMissingContext, format, args...)
}

// Upstreamf wraps a failed collaborator call (database, object store).
func Upstreamf(cause error, format string, args ...any) *Error {
	e := newError(KindUpstream, format, args...)
	e.Cause = cause
	return e
}
