// Package apperror provides the structured domain errors returned by the POS
// services and translated to HTTP responses by the controllers.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeInternal            Code = "INTERNAL"
	CodeValidation          Code = "VALIDATION"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeConcurrencyConflict Code = "CONCURRENCY_CONFLICT"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
)

// HTTPStatus maps a domain code to the HTTP status code sent to clients.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeConcurrencyConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil && e.Code == CodeInternal {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithMetadata attaches key/value context, e.g. the offending id.
func (e *Error) WithMetadata(key, value string) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

func Validation(format string, args ...any) *Error {
	return New(CodeValidation, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(CodeNotFound, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) *Error {
	return New(CodeConflict, fmt.Sprintf(format, args...))
}

// ConcurrencyConflict reports a lost update detected through a stale version.
func ConcurrencyConflict(entity string, id uint) *Error {
	return New(CodeConcurrencyConflict,
		fmt.Sprintf("%s %d was modified concurrently, reload and retry", entity, id))
}

func Internal(message string, cause error) *Error {
	return Wrap(CodeInternal, message, cause)
}

// Sentinels for errors.Is comparisons by code.
var (
	ErrValidation          = New(CodeValidation, "validation failed")
	ErrNotFound            = New(CodeNotFound, "not found")
	ErrConflict            = New(CodeConflict, "conflict")
	ErrConcurrencyConflict = New(CodeConcurrencyConflict, "concurrency conflict")
)

// CodeOf returns the domain code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
