// Package errors provides structured error types for depresolve.
//
// Error codes separate the kinds of failure a caller may want to branch on:
//   - INVALID_*: malformed input or a violated caller contract
//   - *_NOT_FOUND: missing artifacts, descriptors or files
//   - NETWORK_ERROR / OFFLINE: transport problems
//   - *_FAILED: a stage of the repository system failed
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidCoordinate, "bad coordinate: %s", s)
//	if errors.Is(err, errors.ErrCodeInvalidCoordinate) {
//	    // Handle validation error
//	}
//
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

const (
	// Input validation errors
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidRequest    Code = "INVALID_REQUEST"
	ErrCodeInvalidCoordinate Code = "INVALID_COORDINATE"
	ErrCodeInvalidPath       Code = "INVALID_PATH"
	ErrCodeInvalidConfig     Code = "INVALID_CONFIG"

	// Resource not found errors
	ErrCodeNotFound         Code = "NOT_FOUND"
	ErrCodeArtifactNotFound Code = "ARTIFACT_NOT_FOUND"
	ErrCodeFileNotFound     Code = "FILE_NOT_FOUND"

	// Transport errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeOffline Code = "OFFLINE"

	// Stage failures
	ErrCodeCollection Code = "COLLECTION_FAILED"
	ErrCodeResolution Code = "RESOLUTION_FAILED"
	ErrCodeInstall    Code = "INSTALL_FAILED"
	ErrCodeDeploy     Code = "DEPLOY_FAILED"

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
// Only the outermost *Error in the chain is consulted.
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
