// Package errors provides standardized error handling for the MovieBuzz client.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a standardized error code for the MovieBuzz client.
type ErrorCode string

const (
	// Catalog (metadata service) errors
	MB_METADATA_FETCH  ErrorCode = "MB_METADATA_FETCH"  // Catalog responded with a non-success status
	MB_METADATA_SCHEMA ErrorCode = "MB_METADATA_SCHEMA" // Catalog payload failed boundary validation

	// User-backend errors
	MB_BACKEND         ErrorCode = "MB_BACKEND"         // Backend responded with a non-success status
	MB_UNAUTHENTICATED ErrorCode = "MB_UNAUTHENTICATED" // Operation requires an authenticated session

	// Session errors (handled internally by the session manager, never
	// surfaced to callers as a failure)
	MB_SESSION_DECODE ErrorCode = "MB_SESSION_DECODE" // Malformed or expired persisted token

	// Resource errors
	MB_NOT_FOUND ErrorCode = "MB_NOT_FOUND" // Resource not found upstream
)

// Error represents a standardized client error.
// UpstreamStatus carries the HTTP status observed on the wire when the error
// originates from one of the two remote services, zero otherwise.
type Error struct {
	Code           ErrorCode `json:"code"`
	Message        string    `json:"message"`
	UpstreamStatus int       `json:"upstreamStatus,omitempty"`
}

// New creates a new Error with the specified code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewUpstream creates a new Error carrying the upstream HTTP status that
// produced it.
func NewUpstream(code ErrorCode, message string, status int) *Error {
	return &Error{Code: code, Message: message, UpstreamStatus: status}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.UpstreamStatus != 0 {
		return fmt.Sprintf("%s: %s (upstream status %d)", e.Code, e.Message, e.UpstreamStatus)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf extracts the ErrorCode from err, or returns the empty string when err
// is not a client Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err is a client Error with the given code.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
