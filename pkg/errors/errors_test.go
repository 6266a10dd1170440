package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "test message: %s", "value")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_INPUT: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeLayoutFailure, cause, "graphviz layout")

	if err.Code != ErrCodeLayoutFailure {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeLayoutFailure)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	// Test Unwrap
	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	// Test errors.Is with wrapped error
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeInvalidInput,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeCycle,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeLayoutFailure, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodeLayoutFailure,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeMissingDimensions, "test"),
			expected: ErrCodeMissingDimensions,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidInput, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCycle(t *testing.T) {
	err := Cycle("a", "b")
	if !Is(err, ErrCodeCycle) {
		t.Fatalf("Is(err, ErrCodeCycle) = false, want true")
	}

	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatal("errors.As(*CycleError) = false, want true")
	}
	if ce.Parent != "a" || ce.Child != "b" {
		t.Errorf("CycleError = %+v, want parent a, child b", ce)
	}
}

func TestDomainConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
	}{
		{"not found", NotFound("container", "c1"), ErrCodeNotFound},
		{"missing dimensions", MissingDimensions("c1"), ErrCodeMissingDimensions},
		{"layout failure", LayoutFailure("graphviz", errors.New("boom")), ErrCodeLayoutFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.code {
				t.Errorf("GetCode() = %v, want %v", got, tt.code)
			}
		})
	}
}

func TestValidateElementID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"node_1", false},
		{"loc:0/op 3", false},
		{"", true},
		{"bad\x00id", true},
		{strings.Repeat("x", 513), true},
	}

	for _, tt := range tests {
		err := ValidateElementID(tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateElementID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
	}
}

func TestValidateSessionID(t *testing.T) {
	if err := ValidateSessionID("3f2b8c1e-4d5a-4b6c-9d7e-0a1b2c3d4e5f"); err != nil {
		t.Errorf("valid uuid rejected: %v", err)
	}
	for _, id := range []string{"", "../etc/passwd", "3F2B8C1E-4D5A-4B6C-9D7E-0A1B2C3D4E5F"} {
		if err := ValidateSessionID(id); err == nil {
			t.Errorf("ValidateSessionID(%q) = nil, want error", id)
		}
	}
}

func TestValidateDocumentPath(t *testing.T) {
	tests := []struct {
		path string
		code Code
	}{
		{"graph.json", ""},
		{"dir/Graph.JSON", ""},
		{"", ErrCodeInvalidInput},
		{"graph.yaml", ErrCodeInvalidFormat},
	}

	for _, tt := range tests {
		err := ValidateDocumentPath(tt.path)
		if got := GetCode(err); got != tt.code {
			t.Errorf("ValidateDocumentPath(%q) code = %q, want %q", tt.path, got, tt.code)
		}
	}
}
