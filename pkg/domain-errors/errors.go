// Package derrors defines the coded error type used across service
// boundaries. Business-rule rejections are returned as values with a
// machine-readable code so callers can branch on the precise condition
// (an illegal transition is a normal outcome of losing a race, not a
// crash), while transport layers translate codes into HTTP statuses.
package derrors

import (
	"errors"
	"fmt"
)

// Code identifies the category of a domain error.
type Code string

const (
	// Lifecycle rejections. These are expected outcomes: the actor raced
	// another actor or acted on stale state. Callers re-fetch and inform.
	CodeIllegalTransition Code = "illegal_transition"
	CodeDeadlineExpired   Code = "deadline_expired"
	CodeFeedbackRejected  Code = "feedback_rejected"

	// Caller errors.
	CodeNotFound     Code = "not_found"
	CodeInvalidInput Code = "invalid_input"
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"

	// Infrastructure conditions. Only these should be retried automatically.
	CodeConflict    Code = "conflict"
	CodeUnavailable Code = "unavailable"
	CodeInternal    Code = "internal_error"
)

// Error is a coded domain error. It optionally wraps an underlying cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New creates a coded error with a message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates an underlying error with a code and message. Returns nil
// if err is nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// uncoded errors so nothing leaks an unclassified failure to a client.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Retryable reports whether the error represents a transient
// infrastructure condition the caller may retry with a fresh read.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeConflict, CodeUnavailable:
		return true
	}
	return false
}
