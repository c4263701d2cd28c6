// Package errors defines the coded error taxonomy shared by the sync engine.
// Callers branch on Code with HasCode or errors.Is instead of matching text.
package errors

import (
	"errors"
	"fmt"
)

// Code identifies an error kind
type Code string

const (
	ErrUnknown Code = "UNKNOWN"

	ErrSourceUnavailable     Code = "SOURCE_UNAVAILABLE"
	ErrSourcePathMissing     Code = "SOURCE_PATH_MISSING"
	ErrNotFound              Code = "NOT_FOUND"
	ErrNoBundlesFound        Code = "NO_BUNDLES_FOUND"
	ErrManifestRead          Code = "MANIFEST_READ"
	ErrDestinationResolution Code = "DESTINATION_RESOLUTION"
	ErrFilesystemOperation   Code = "FILESYSTEM_OPERATION"
	ErrConfigInvalid         Code = "CONFIG_INVALID"
)

// SyncError is a structured error with a code and optional details
type SyncError struct {
	Code    Code
	Message string
	Details map[string]interface{}
	Wrapped error
}

func (e *SyncError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Wrapped)
	}
	return e.Message
}

func (e *SyncError) Unwrap() error {
	return e.Wrapped
}

// Is matches any SyncError carrying the same code.
func (e *SyncError) Is(target error) bool {
	var targetErr *SyncError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a SyncError with the given code and message
func New(code Code, message string) *SyncError {
	return &SyncError{Code: code, Message: message}
}

// Newf creates a SyncError with a formatted message
func Newf(code Code, format string, args ...interface{}) *SyncError {
	return &SyncError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a code. It returns nil when err is nil.
func Wrap(err error, code Code, message string) *SyncError {
	if err == nil {
		return nil
	}
	return &SyncError{Code: code, Message: message, Wrapped: err}
}

// Wrapf wraps err with a code and formatted message
func Wrapf(err error, code Code, format string, args ...interface{}) *SyncError {
	if err == nil {
		return nil
	}
	return &SyncError{Code: code, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// WithDetail adds a detail to the error
func (e *SyncError) WithDetail(key string, value interface{}) *SyncError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// CodeOf returns the code of the outermost SyncError in err's chain, or
// ErrUnknown.
func CodeOf(err error) Code {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrUnknown
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, &SyncError{Code: code})
}
