package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestLibraryError(t *testing.T) {
	underlying := errors.New("bad header")
	err := NewLibraryError("load", "Acme.Tools", underlying).
		WithPath("/refs/Acme.Tools").
		WithRecoverable(true)

	if err.Type != ErrorTypeLibraryLoad {
		t.Errorf("Expected Type to be ErrorTypeLibraryLoad, got %v", err.Type)
	}

	if err.Library != "Acme.Tools" {
		t.Errorf("Expected Library to be 'Acme.Tools', got %s", err.Library)
	}

	if !errors.Is(err, underlying) {
		t.Errorf("Expected error to unwrap to underlying error")
	}

	if !err.IsRecoverable() {
		t.Errorf("Expected error to be marked as recoverable")
	}

	expectedMsg := "library_load load failed for Acme.Tools (/refs/Acme.Tools): bad header"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestLibraryErrorNotFound(t *testing.T) {
	err := NewLibraryError("resolve", "Missing", fmt.Errorf("search path: %w", fs.ErrNotExist))

	if err.Type != ErrorTypeLibraryNotFound {
		t.Errorf("Expected Type to be ErrorTypeLibraryNotFound, got %v", err.Type)
	}

	expectedMsg := "library_not_found resolve failed for Missing: search path: file does not exist"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestTypeError(t *testing.T) {
	underlying := errors.New("syntax error")
	err := NewTypeError("Widget", "Acme", underlying)

	if err.Type != ErrorTypeTypeAccess {
		t.Errorf("Expected Type to be ErrorTypeTypeAccess, got %v", err.Type)
	}

	var target *TypeError
	if !errors.As(error(err), &target) || target.TypeName != "Widget" {
		t.Errorf("Expected errors.As to find the TypeError")
	}

	expectedMsg := "cannot enumerate members of Widget in Acme: syntax error"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestAnalysisError(t *testing.T) {
	underlying := errors.New("incomplete file")
	err := NewAnalysisError("recommend", 42, underlying)

	if err.Offset != 42 {
		t.Errorf("Expected Offset to be 42, got %d", err.Offset)
	}

	if !errors.Is(err, underlying) {
		t.Errorf("Expected error to unwrap to underlying error")
	}

	expectedMsg := "analysis recommend failed at offset 42: incomplete file"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestConfigError(t *testing.T) {
	underlying := errors.New("invalid value")
	err := NewConfigError("field_name", "invalid_value", underlying)

	if err.Field != "field_name" {
		t.Errorf("Expected Field to be 'field_name', got %s", err.Field)
	}

	if err.Value != "invalid_value" {
		t.Errorf("Expected Value to be 'invalid_value', got %s", err.Value)
	}

	if !errors.Is(err, underlying) {
		t.Errorf("Expected error to unwrap to underlying error")
	}

	expectedMsg := `config error for field field_name (value invalid_value): invalid value`
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestMultiError(t *testing.T) {
	err1 := errors.New("error 1")
	err2 := errors.New("error 2")

	multi := NewMultiError([]error{err1, nil, err2})
	if len(multi.Errors) != 2 {
		t.Fatalf("Expected 2 errors after filtering nils, got %d", len(multi.Errors))
	}

	if !errors.Is(multi, err1) || !errors.Is(multi, err2) {
		t.Errorf("Expected multi error to match both wrapped errors")
	}

	expectedMsg := "2 errors: [error 1 error 2]"
	if multi.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, multi.Error())
	}

	single := NewMultiError([]error{err1})
	if single.Error() != "error 1" {
		t.Errorf("Expected single error message, got %q", single.Error())
	}

	if NewMultiError(nil).ErrorOrNil() != nil {
		t.Errorf("Expected ErrorOrNil to return nil for an empty multi error")
	}

	if single.ErrorOrNil() == nil {
		t.Errorf("Expected ErrorOrNil to return the multi error")
	}
}
