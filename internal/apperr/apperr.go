// Package apperr defines the canonical error type for the Gatehouse API.
//
// Every error that leaves a service layer is one of the kinds below; HTTP
// handlers project it to a status code and a machine-readable code. The
// wrapped cause is for server-side logging only and is never serialized,
// so storage error strings cannot leak to clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the canonical application error.
type Error struct {
	// Code is a machine-readable identifier (e.g. "AUTH_FAILURE").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"message"`
	// Status is the HTTP response status code.
	Status int `json:"-"`
	// RetryAfterSeconds is set only for RATE_LIMITED errors.
	RetryAfterSeconds int `json:"retryAfterSeconds,omitempty"`
	// Cause is the underlying error, for server-side logging only.
	Cause error `json:"-"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *Error) Error() string { return e.Message }

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error { return e.Cause }

// Validation creates a 400 error for input that fails the documented rules.
func Validation(msg string) *Error {
	return &Error{Code: "VALIDATION", Message: msg, Status: http.StatusBadRequest}
}

// BadRequest creates a 400 error for protocol-level refusals
// (e.g. a failed OAuth code exchange).
func BadRequest(msg string) *Error {
	return &Error{Code: "BAD_REQUEST", Message: msg, Status: http.StatusBadRequest}
}

// AuthFailure creates a 401 error: bad credentials, invalid or expired
// tokens, disabled accounts.
func AuthFailure(msg string) *Error {
	return &Error{Code: "AUTH_FAILURE", Message: msg, Status: http.StatusUnauthorized}
}

// Forbidden creates a 403 error for callers lacking the required role.
func Forbidden(msg string) *Error {
	return &Error{Code: "FORBIDDEN", Message: msg, Status: http.StatusForbidden}
}

// NotFound creates a 404 error for a named resource.
func NotFound(resource string) *Error {
	return &Error{Code: "NOT_FOUND", Message: resource + " not found", Status: http.StatusNotFound}
}

// Conflict creates a 409 error for duplicate email/name/id.
func Conflict(msg string) *Error {
	return &Error{Code: "CONFLICT", Message: msg, Status: http.StatusConflict}
}

// RateLimited creates a 429 error carrying the retry hint from the rule
// that tripped.
func RateLimited(retryAfterSeconds int) *Error {
	return &Error{
		Code:              "RATE_LIMITED",
		Message:           fmt.Sprintf("Too many attempts. Try again in %d seconds.", retryAfterSeconds),
		Status:            http.StatusTooManyRequests,
		RetryAfterSeconds: retryAfterSeconds,
	}
}

// Internal creates a 500 error wrapping an unexpected server-side failure.
// The cause is stored for logging but never sent to the client.
func Internal(cause error) *Error {
	return &Error{
		Code:    "INTERNAL",
		Message: "An unexpected error occurred",
		Status:  http.StatusInternalServerError,
		Cause:   cause,
	}
}

// As extracts the *Error from err's chain, or nil if there is none.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// From returns err as an *Error, upgrading unknown errors to Internal so the
// HTTP layer always has a safe projection.
func From(err error) *Error {
	if ae := As(err); ae != nil {
		return ae
	}
	return Internal(err)
}
