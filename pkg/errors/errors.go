// Package errors provides structured error types for rpviz.
//
// Every failure the pipeline can report carries a machine-readable [Code]
// drawn from a small taxonomy:
//   - INPUT_FORMAT: input is neither an archive, a directory, nor a model file
//   - PARSE_ERROR: a model file could not be parsed or references unknown entities
//   - ANNOTATION_WARNING: degraded cofactor or depiction annotation
//   - INJECTION_FAILED: the session identifier is missing from the viewer markup
//   - IO_ERROR: output could not be created or written
//
// Entity-scoped codes (PARSE_ERROR, ANNOTATION_WARNING) are reported as
// warnings by the pipeline. The remaining codes abort a run; see [IsFatal].
//
// # Usage
//
//	err := errors.New(errors.ErrCodeParse, "%s: no model element", file)
//	if errors.Is(err, errors.ErrCodeParse) {
//	    // skip the file
//	}
//
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "create output folder %s", dir)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the pipeline error taxonomy.
const (
	ErrCodeInputFormat Code = "INPUT_FORMAT"
	ErrCodeParse       Code = "PARSE_ERROR"
	ErrCodeAnnotation  Code = "ANNOTATION_WARNING"
	ErrCodeInjection   Code = "INJECTION_FAILED"
	ErrCodeIO          Code = "IO_ERROR"
	ErrCodeBundle      Code = "BUNDLE_ERROR"

	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeTimeout      Code = "TIMEOUT"
	ErrCodeInternal     Code = "INTERNAL_ERROR"
	ErrCodeUnsupported  Code = "UNSUPPORTED"
)

// fatalCodes abort a whole run when returned from a pipeline stage.
var fatalCodes = map[Code]bool{
	ErrCodeInputFormat:  true,
	ErrCodeInjection:    true,
	ErrCodeIO:           true,
	ErrCodeBundle:       true,
	ErrCodeInvalidInput: true,
	ErrCodeInternal:     true,
}

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

// IsFatal reports whether err should abort a run. Uncoded errors are fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	code := GetCode(err)
	if code == "" {
		return true
	}
	return fatalCodes[code]
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
