// Package errors defines the stable error taxonomy of the consolidation engine.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ParseError indicates the language parser could not build an AST.
	// Non-fatal: content and DNA signatures are still computed, the
	// structure signature degrades to empty.
	ParseError ErrorCode = "PARSE_ERROR"
	// NoEligibleMaster indicates every candidate in a sibling group is
	// excluded by the never_master_from rules
	NoEligibleMaster ErrorCode = "NO_ELIGIBLE_MASTER"
	// UnresolvedConflicts indicates a merge execute was attempted while
	// conflicts still lack a chosen resolution
	UnresolvedConflicts ErrorCode = "UNRESOLVED_CONFLICTS"
	// OutputPathConflict indicates the merge output path already exists
	// and is not one of the input files
	OutputPathConflict ErrorCode = "OUTPUT_PATH_CONFLICT"
	// InsufficientFiles indicates fewer than two files were given to a
	// merge operation
	InsufficientFiles ErrorCode = "INSUFFICIENT_FILES"
	// ScanNotFound indicates the requested scan id is unknown
	ScanNotFound ErrorCode = "SCAN_NOT_FOUND"
	// FileNotFound indicates a filepath was not part of the scan or does
	// not exist on disk
	FileNotFound ErrorCode = "FILE_NOT_FOUND"
	// RulesInvalid indicates a rules configuration failed validation
	RulesInvalid ErrorCode = "RULES_INVALID"
	// ScopeInvalid indicates invalid request parameters
	ScopeInvalid ErrorCode = "SCOPE_INVALID"
	// Cancelled indicates the operation was cancelled by the caller
	Cancelled ErrorCode = "CANCELLED"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// HmError represents an engine error with a stable code, a human-readable
// message and an optional underlying cause.
type HmError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new HmError
func New(code ErrorCode, message string) *HmError {
	return &HmError{Code: code, Message: message}
}

// Newf creates a new HmError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *HmError {
	return &HmError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new HmError wrapping an underlying cause
func Wrap(code ErrorCode, message string, cause error) *HmError {
	return &HmError{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *HmError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *HmError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *HmError) WithDetails(details interface{}) *HmError {
	e.Details = details
	return e
}

// CodeOf extracts the ErrorCode from an error chain.
// Returns InternalError for errors outside the taxonomy.
func CodeOf(err error) ErrorCode {
	var he *HmError
	if errors.As(err, &he) {
		return he.Code
	}
	return InternalError
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	var he *HmError
	if errors.As(err, &he) {
		return he.Code == code
	}
	return false
}
