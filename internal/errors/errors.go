package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
)

// Error types for the atom module
type ErrorType string

const (
	// Handle errors
	ErrorTypeRange ErrorType = "range"

	// Scan errors
	ErrorTypeScan ErrorType = "scan"

	// File errors
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypeFileTooLarge ErrorType = "file_too_large"
	ErrorTypePermission   ErrorType = "permission"
	ErrorTypeFile         ErrorType = "file"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// Sentinels wrapped by RangeError
var (
	ErrOutOfRange  = errors.New("offset out of range")
	ErrNotBoundary = errors.New("offset not on a UTF-8 boundary")
	ErrTooLarge    = errors.New("file exceeds size limit")
)

// RangeError reports an invalid offset pair used to slice an interned string
type RangeError struct {
	Type       ErrorType
	Operation  string
	Start      int
	End        int
	Length     int
	Underlying error
}

// NewRangeError creates a new range error
func NewRangeError(op string, start, end, length int, err error) *RangeError {
	return &RangeError{
		Type:       ErrorTypeRange,
		Operation:  op,
		Start:      start,
		End:        end,
		Length:     length,
		Underlying: err,
	}
}

// Error implements the error interface
func (e *RangeError) Error() string {
	return fmt.Sprintf("%s [%d:%d] of length %d: %v", e.Operation, e.Start, e.End, e.Length, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *RangeError) Unwrap() error {
	return e.Underlying
}

// ScanError represents a failure of a whole scan
type ScanError struct {
	Type       ErrorType
	Root       string
	Underlying error
	Timestamp  time.Time
}

// NewScanError creates a new scan error
func NewScanError(root string, err error) *ScanError {
	return &ScanError{
		Type:       ErrorTypeScan,
		Root:       root,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ScanError) Error() string {
	return fmt.Sprintf("scan of %s failed: %v", e.Root, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ScanError) Unwrap() error {
	return e.Underlying
}

// FileError represents a file-related error
type FileError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewFileError creates a new file error
func NewFileError(op, path string, err error) *FileError {
	return &FileError{
		Type:       classifyFileError(err),
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func classifyFileError(err error) ErrorType {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrorTypeFileNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrorTypePermission
	case errors.Is(err, ErrTooLarge):
		return ErrorTypeFileTooLarge
	default:
		return ErrorTypeFile
	}
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	// Filter out nil errors
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrorOrNil returns nil when no errors were collected
func (e *MultiError) ErrorOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
