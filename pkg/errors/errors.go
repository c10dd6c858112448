// Package errors carries HTTP-aware domain errors from the service layer to
// the single place that renders them.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error functions
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// FieldError represents a validation error for a specific field
type FieldError struct {
	Kind    string `json:"kind"`
	Field   string `json:"field"`
	Message string `json:"message,omitempty"`
}

func (f *FieldError) Error() string {
	return fmt.Sprintf("%s (%s): %s", f.Field, f.Kind, f.Message)
}

func NewFieldError(kind, field, reason string) FieldError {
	return FieldError{Kind: kind, Field: field, Message: reason}
}

// StatusCode represents an HTTP status code error
type StatusCode int

// Error implements error
func (status StatusCode) Error() string {
	return http.StatusText(int(status))
}

func Status(code int) *Error {
	return Wrap(StatusCode(code)).Reason(http.StatusText(code))
}

var (
	Invalid      *Error = Status(http.StatusBadRequest)
	Unauthorized *Error = Status(http.StatusUnauthorized)
	Forbidden    *Error = Status(http.StatusForbidden)
	NotFound     *Error = Status(http.StatusNotFound)
	Conflict     *Error = Status(http.StatusConflict)
	Unavailable  *Error = Status(http.StatusServiceUnavailable)
)

// Error is a custom error type for passing more information
type Error struct {
	// Kind is the returned error type
	Kind string `json:"kind"`
	// Message is the human readable string that indicate the error
	Message string `json:"message"`
	// Fields used when there's validation error for a field.
	Fields []FieldError `json:"fields,omitempty"`

	cause error
}

var _ error = (*Error)(nil)

func Wrap(err error) *Error {
	return &Error{cause: err}
}

// Error implements error
func (e *Error) Error() string {
	str := fmt.Sprintf("[%s] ", e.Kind)
	if e.Message != "" {
		str += e.Message
	}
	if e.cause != nil {
		str += fmt.Sprintf(" (%s)", e.cause)
	}
	return str
}

// Reason returns a copy of the error with kind set to given value
func (e *Error) Reason(kind string) *Error {
	err := *e
	err.Kind = kind
	return &err
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Wrap returns a copy of the error with the given cause attached. The status
// of the original cause is kept reachable through HTTPStatus.
func (e *Error) Wrap(cause error) *Error {
	err := *e
	if e.cause != nil {
		err.cause = Join(e.cause, cause)
	} else {
		err.cause = cause
	}
	return &err
}

// Explain makes a copy of the error with given message
func (e *Error) Explain(message string, args ...any) *Error {
	err := *e
	err.Message = fmt.Sprintf(message, args...)
	return &err
}

// WithField returns a copy of error with the field appended.
func (e *Error) WithField(kind, field, message string) *Error {
	newError := *e
	newError.Fields = append(append([]FieldError(nil), e.Fields...), NewFieldError(kind, field, message))
	return &newError
}

// Is implements the needed interface for errors.Is
// It checks kind and status code for equality
func (e *Error) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if other, ok := target.(*Error); ok {
		return other.Kind == e.Kind
	}
	if e.cause != nil {
		return Is(e.cause, target)
	}
	return false
}

// HTTPStatus reports the status carried by err, or 500 when err is not a
// domain error.
func HTTPStatus(err error) int {
	var status StatusCode
	if As(err, &status) {
		return int(status)
	}
	return http.StatusInternalServerError
}

// IsDomain reports whether err was constructed from one of the status
// sentinels and is therefore safe to show to a client.
func IsDomain(err error) bool {
	var e *Error
	if !As(err, &e) {
		return false
	}
	var status StatusCode
	return As(e, &status)
}
