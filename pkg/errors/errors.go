// Package errors provides structured error types for flowscope.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP server and the library
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The graph state model reports three domain failures:
//   - CYCLE: a container assignment would make the hierarchy cyclic
//   - NOT_FOUND: an unknown node, edge, container or session id was referenced
//   - MISSING_DIMENSIONS: a container was expanded before any layout measured it
//
// The layout adapter reports LAYOUT_FAILURE when the external engine rejects
// a request. Input validation uses INVALID_*.
//
// # Usage
//
//	err := errors.NotFound("container", id)
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // Handle missing element
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeLayoutFailure, engineErr, "graphviz layout")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidID     Code = "INVALID_ID"

	// Graph state errors
	ErrCodeCycle             Code = "CYCLE"
	ErrCodeNotFound          Code = "NOT_FOUND"
	ErrCodeMissingDimensions Code = "MISSING_DIMENSIONS"

	// Layout errors
	ErrCodeLayoutFailure Code = "LAYOUT_FAILURE"

	// Session errors
	ErrCodeSessionNotFound Code = "SESSION_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
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

// NotFound reports an unknown element id. Kind is "node", "edge",
// "container" or "session".
func NotFound(kind, id string) *Error {
	return New(ErrCodeNotFound, "unknown %s %q", kind, id)
}

// CycleError describes a rejected parent/child assignment.
type CycleError struct {
	Parent string
	Child  string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("adding %q under %q would create a cycle", e.Child, e.Parent)
}

// Cycle returns a CYCLE error whose cause is a *CycleError.
func Cycle(parent, child string) *Error {
	return Wrap(ErrCodeCycle, &CycleError{Parent: parent, Child: child}, "invalid hierarchy")
}

// MissingDimensions reports an expand request for a container that was never
// measured by a full layout pass.
func MissingDimensions(containerID string) *Error {
	return New(ErrCodeMissingDimensions, "container %q has no cached expanded dimensions; run a full layout first", containerID)
}

// LayoutFailure wraps an error returned by an external layout engine.
func LayoutFailure(engine string, cause error) *Error {
	return Wrap(ErrCodeLayoutFailure, cause, "%s layout failed", engine)
}
