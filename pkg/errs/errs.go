// Package errs defines the error taxonomy shared by services and handlers.
package errs

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error category.
type Code string

const (
	CodeValidationConflict Code = "VALIDATION_CONFLICT"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeBadRequest         Code = "BAD_REQUEST"
	CodeInternal           Code = "INTERNAL"
)

// Error is a domain error carrying a user-facing message and an optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // User-facing message
	Cause   error  // Wrapped underlying error, never shown to clients
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
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

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinels for errors.Is checks. Only the code is compared.
var (
	ValidationConflict = New(CodeValidationConflict, "validation conflict")
	InvalidCredentials = New(CodeInvalidCredentials, "invalid credentials")
	Unauthorized       = New(CodeUnauthorized, "unauthorized")
	NotFound           = New(CodeNotFound, "not found")
	BadRequest         = New(CodeBadRequest, "bad request")
	Internal           = New(CodeInternal, "internal error")
)

// Internal errors are reported with this message regardless of cause.
const msgInternal = "Internal Server Error"

// HTTPStatus maps a code to its HTTP status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidationConflict, CodeInvalidCredentials, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the status and message safe to send to a client.
// Errors outside the taxonomy are reported as internal.
func Public(err error) (int, string) {
	var e *Error
	if !errors.As(err, &e) || e.Code == CodeInternal {
		return http.StatusInternalServerError, msgInternal
	}
	return e.Code.HTTPStatus(), e.Message
}
