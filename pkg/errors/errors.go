// Package errors provides structured error types for libresolve.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library, CLI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - Diagnosable failures that name the coordinate and repositories involved
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - NOT_FOUND, CORRUPT_ARTIFACT: the coordinate cannot be obtained
//   - TRANSIENT_FETCH: network failures that survived the retry budget
//   - CANCELLED: caller-initiated abort
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidCoordinate, "invalid coordinate: %s", s)
//	if errors.Is(err, errors.ErrCodeInvalidCoordinate) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors and attach the failing coordinate
//	err := errors.Wrap(errors.ErrCodeNotFound, origErr, "resolve %s", coord).
//	    WithCoordinate(coord.String()).
//	    WithRepositories(urls)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidCoordinate Code = "INVALID_COORDINATE"
	ErrCodeInvalidConfig     Code = "INVALID_CONFIG"

	// Resolution failures
	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeCorrupt        Code = "CORRUPT_ARTIFACT"
	ErrCodeTransientFetch Code = "TRANSIENT_FETCH"
	ErrCodeCancelled      Code = "CANCELLED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
//
// Coordinate and Repositories are set for resolution failures so that a
// caller can report exactly what was attempted.
type Error struct {
	Code         Code     // Machine-readable error code
	Message      string   // Human-readable message
	Cause        error    // Underlying error (optional)
	Coordinate   string   // Offending coordinate (optional)
	Repositories []string // Repository URLs attempted (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	if len(e.Repositories) > 0 {
		fmt.Fprintf(&b, " (repositories: %s)", strings.Join(e.Repositories, ", "))
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithCoordinate sets the offending coordinate and returns e.
func (e *Error) WithCoordinate(coord string) *Error {
	e.Coordinate = coord
	return e
}

// WithRepositories records the repository URLs that were attempted and
// returns e.
func (e *Error) WithRepositories(urls []string) *Error {
	e.Repositories = append([]string(nil), urls...)
	return e
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFoundClass reports whether err means the coordinate cannot be
// obtained from any repository: either it does not exist or every copy
// failed integrity checks after retries.
func IsNotFoundClass(err error) bool {
	switch GetCode(err) {
	case ErrCodeNotFound, ErrCodeCorrupt:
		return true
	}
	return false
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// CoordinateOf returns the coordinate recorded on the first *Error in the
// chain that carries one.
func CoordinateOf(err error) string {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return ""
		}
		if e.Coordinate != "" {
			return e.Coordinate
		}
		err = e.Cause
	}
	return ""
}
