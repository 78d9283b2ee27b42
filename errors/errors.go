// Package errors provides structured error types for the visio-to-xml module.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library and CLI
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//   - Attribution of parse failures to the offending package part
//
// # Error Codes
//
// Codes split into two families. Parse-fatal codes (CORRUPT_ARCHIVE,
// MISSING_PART, MALFORMED_RELATIONSHIPS, MASTER_CYCLE) mean the package
// cannot be turned into a diagram at all. Everything else is an
// operational failure around the parse: configuration, I/O, emission,
// or the OCR enrichment path.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMissingPart, "required part %s not in archive", name)
//	if errors.Is(err, errors.ErrCodeMissingPart) {
//	    // Handle the missing part
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "read %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Parse-fatal errors. Any of these aborts the parse with no diagram.
	ErrCodeCorruptArchive Code = "CORRUPT_ARCHIVE"
	ErrCodeMissingPart    Code = "MISSING_PART"
	ErrCodeMalformedRels  Code = "MALFORMED_RELATIONSHIPS"
	ErrCodeMasterCycle    Code = "MASTER_CYCLE"

	// Input errors
	ErrCodeUnsupportedFormat Code = "UNSUPPORTED_FORMAT"
	ErrCodeInvalidInput      Code = "INVALID_INPUT"

	// Configuration and environment errors
	ErrCodeConfig Code = "INVALID_CONFIG"
	ErrCodeIO     Code = "IO_ERROR"

	// Output generation errors
	ErrCodeEmit Code = "EMIT_ERROR"

	// OCR enrichment errors
	ErrCodeOCR            Code = "OCR_ERROR"
	ErrCodeOCRUnavailable Code = "OCR_UNAVAILABLE"

	// Network errors (vision OCR backends)
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Unexpected internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code, an optional offending package
// part, and an optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Part    string // Package part the error refers to (optional)
	Detail  string // Extra context, e.g. a relationship ID (optional)
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Detail)
	}
	if e.Part != "" {
		msg = fmt.Sprintf("%s (part %s)", msg, e.Part)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithPart records the package part the error refers to and returns the
// error for chaining.
func (e *Error) WithPart(part string) *Error {
	e.Part = part
	return e
}

// WithDetail records extra context, such as a relationship ID, and
// returns the error for chaining.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
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

// IsFatal reports whether err carries one of the parse-fatal codes.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeCorruptArchive, ErrCodeMissingPart, ErrCodeMalformedRels, ErrCodeMasterCycle:
		return true
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

// GetPart extracts the offending package part from an error, if recorded.
func GetPart(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Part
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Part != "" {
			return fmt.Sprintf("%s (part %s)", e.Message, e.Part)
		}
		return e.Message
	}
	return err.Error()
}
