package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
)

// Error types for the completion core
type ErrorType string

const (
	// Library and catalog errors
	ErrorTypeLibraryNotFound ErrorType = "library_not_found"
	ErrorTypeLibraryLoad     ErrorType = "library_load"
	ErrorTypeTypeAccess      ErrorType = "type_access"

	// Analysis errors
	ErrorTypeAnalysis ErrorType = "analysis"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"

	// Internal errors
	ErrorTypeInternal ErrorType = "internal"
)

var (
	// ErrIndexOutOfRange is returned when a call-tip index is set outside the filtered list
	ErrIndexOutOfRange = errors.New("call-tip index out of range")

	// ErrAbandoned reports that a background worker did not stop within its timeout
	ErrAbandoned = errors.New("background worker abandoned after timeout")

	// ErrClosed is returned by operations on a closed session
	ErrClosed = errors.New("session closed")
)

// LibraryError represents a failure to resolve or load one library
type LibraryError struct {
	Type        ErrorType
	Library     string
	Path        string
	Operation   string
	Underlying  error
	Timestamp   time.Time
	Recoverable bool
}

// NewLibraryError creates a library error; missing files are classified as not found
func NewLibraryError(op, library string, err error) *LibraryError {
	errorType := ErrorTypeLibraryLoad
	if errors.Is(err, fs.ErrNotExist) {
		errorType = ErrorTypeLibraryNotFound
	}
	return &LibraryError{
		Type:       errorType,
		Library:    library,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithPath adds the library file path to the error
func (e *LibraryError) WithPath(path string) *LibraryError {
	e.Path = path
	return e
}

// WithRecoverable marks the error as recoverable
func (e *LibraryError) WithRecoverable(recoverable bool) *LibraryError {
	e.Recoverable = recoverable
	return e
}

// Error implements the error interface
func (e *LibraryError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s failed for %s (%s): %v", e.Type, e.Operation, e.Library, e.Path, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed for %s: %v", e.Type, e.Operation, e.Library, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *LibraryError) Unwrap() error {
	return e.Underlying
}

// IsRecoverable checks if the error can be retried
func (e *LibraryError) IsRecoverable() bool {
	return e.Recoverable
}

// TypeError reports a type whose members could not be enumerated
type TypeError struct {
	Type       ErrorType
	TypeName   string
	Library    string
	Underlying error
	Timestamp  time.Time
}

// NewTypeError creates a type access error
func NewTypeError(typeName, library string, err error) *TypeError {
	return &TypeError{
		Type:       ErrorTypeTypeAccess,
		TypeName:   typeName,
		Library:    library,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *TypeError) Error() string {
	return fmt.Sprintf("cannot enumerate members of %s in %s: %v", e.TypeName, e.Library, e.Underlying)
}

// Unwrap returns the underlying error
func (e *TypeError) Unwrap() error {
	return e.Underlying
}

// AnalysisError represents a transient failure of the analysis engine
type AnalysisError struct {
	Type       ErrorType
	Operation  string
	Offset     int
	Underlying error
	Timestamp  time.Time
}

// NewAnalysisError creates an analysis error at a document offset
func NewAnalysisError(op string, offset int, err error) *AnalysisError {
	return &AnalysisError{
		Type:       ErrorTypeAnalysis,
		Operation:  op,
		Offset:     offset,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis %s failed at offset %d: %v", e.Operation, e.Offset, e.Underlying)
}

// Unwrap returns the underlying error
func (e *AnalysisError) Unwrap() error {
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
