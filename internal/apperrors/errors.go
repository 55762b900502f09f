// Package apperrors implements the quoting engine's error taxonomy: every
// user-input and upstream-service failure carries a stable Code, an HTTP
// status, and a retryability flag so callers at every layer can make the
// same graceful-degradation decisions spec.md §7 requires.
package apperrors

import (
	"fmt"
	"net/http"
	"time"
)

// Code is a stable, machine-readable error identifier.
type Code string

const (
	// Input validation (400)
	InvalidDimensions  Code = "INVALID_DIMENSIONS"
	InvalidWeight      Code = "INVALID_WEIGHT"
	InvalidBoxCount    Code = "INVALID_BOX_COUNT"
	InvalidCustomerID  Code = "INVALID_CUSTOMER_ID"
	PincodeNotFound    Code = "PINCODE_NOT_FOUND"
	NoRoadRoute        Code = "NO_ROAD_ROUTE"

	// Upstream distance-service errors (500)
	APIKeyMissing  Code = "API_KEY_MISSING"
	GoogleAPIError Code = "GOOGLE_API_ERROR"
	APITimeout     Code = "API_TIMEOUT"

	// Internal (never returned to the hot-path caller as a hard failure;
	// surfaced only via debug.errorType on graceful degradation)
	Internal Code = "INTERNAL_ERROR"
)

// Error is the engine-wide error type. It implements the standard error
// interface and carries enough structure for both HTTP responses and logs.
type Error struct {
	Code       Code
	Message    string
	Operation  string
	HTTPStatus int
	Retryable  bool
	RetryAfter time.Duration
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Code, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Operation, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error for the given code with a default HTTP status.
func New(code Code, operation, message string) *Error {
	return &Error{
		Code:       code,
		Operation:  operation,
		Message:    message,
		HTTPStatus: statusFor(code),
		Retryable:  retryableFor(code),
	}
}

// Wrap attaches a cause to a new Error without losing the underlying error.
func Wrap(code Code, operation, message string, cause error) *Error {
	e := New(code, operation, message)
	e.Cause = cause
	return e
}

func statusFor(code Code) int {
	switch code {
	case InvalidDimensions, InvalidWeight, InvalidBoxCount, InvalidCustomerID, PincodeNotFound, NoRoadRoute:
		return http.StatusBadRequest
	case APIKeyMissing, GoogleAPIError, APITimeout:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func retryableFor(code Code) bool {
	switch code {
	case APITimeout, GoogleAPIError:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err (if an *Error) is safe to retry.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// AsHTTPStatus extracts the HTTP status to use for err, defaulting to 500.
func AsHTTPStatus(err error) int {
	if e, ok := err.(*Error); ok {
		return e.HTTPStatus
	}
	return http.StatusInternalServerError
}

// CodeOf extracts the Code from err, or "" if err isn't an *Error.
func CodeOf(err error) Code {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
