package types

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unified error code across the module.
type ErrorCode string

// LLM error codes
const (
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"
	ErrUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrRateLimited         ErrorCode = "RATE_LIMITED"
	ErrUpstreamTimeout     ErrorCode = "UPSTREAM_TIMEOUT"
	ErrUpstreamError       ErrorCode = "UPSTREAM_ERROR"
	ErrProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
)

// Crew error codes
const (
	ErrProviderNotSet     ErrorCode = "PROVIDER_NOT_SET"
	ErrMissingInput       ErrorCode = "MISSING_INPUT"
	ErrNoAssignee         ErrorCode = "NO_ASSIGNEE"
	ErrGuardrailsViolated ErrorCode = "GUARDRAILS_VIOLATED"
	ErrEmptyOutput        ErrorCode = "EMPTY_OUTPUT"
	ErrInvalidConfig      ErrorCode = "INVALID_CONFIG"
)

// Error represents a structured error with code, message, and cause.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Kind returns the error code as the error kind.
func (e *Error) Kind() string {
	return string(e.Code)
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Kinder is implemented by errors that name their own kind.
type Kinder interface {
	Kind() string
}

// ErrorKind returns a short kind name for err.
//
// The first error in the chain implementing Kinder wins. Context errors map to
// "Canceled" and "DeadlineExceeded". Anything else falls back to the bare Go
// type name of the outermost error, e.g. "*fs.PathError" becomes "PathError".
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var k Kinder
	if errors.As(err, &k) {
		if name := k.Kind(); name != "" {
			return name
		}
	}
	switch {
	case errors.Is(err, context.Canceled):
		return "Canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "DeadlineExceeded"
	}
	name := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
