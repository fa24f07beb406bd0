// Package apperr defines the error kinds shared by the services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUpstream     = errors.New("upstream failure")
	ErrConflict     = errors.New("concurrency conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Error carries a user-facing message next to its kind and cause.
// errors.Is matches both the kind sentinel and anything in the cause chain.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newErr(kind error, err error, msg string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(msg, args...), Err: err}
}

func NotFound(msg string, args ...any) *Error {
	return newErr(ErrNotFound, nil, msg, args...)
}

func Validation(msg string, args ...any) *Error {
	return newErr(ErrValidation, nil, msg, args...)
}

func Upstream(err error, msg string, args ...any) *Error {
	return newErr(ErrUpstream, err, msg, args...)
}

func Conflict(err error, msg string, args ...any) *Error {
	return newErr(ErrConflict, err, msg, args...)
}

func Unauthorized(msg string, args ...any) *Error {
	return newErr(ErrUnauthorized, nil, msg, args...)
}

func Forbidden(msg string, args ...any) *Error {
	return newErr(ErrForbidden, nil, msg, args...)
}

// Message returns the user-facing message of err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Msg != "" {
		return ae.Msg
	}
	return fallback
}
