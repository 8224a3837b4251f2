package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeParse, "bad file: %s", "rp_1.xml")

	if err.Code != ErrCodeParse {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeParse)
	}

	if err.Message != "bad file: rp_1.xml" {
		t.Errorf("Message = %v, want %v", err.Message, "bad file: rp_1.xml")
	}

	expected := "PARSE_ERROR: bad file: rp_1.xml"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := Wrap(ErrCodeIO, cause, "create output folder")

	if err.Code != ErrCodeIO {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeIO)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

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
		{"matching code", New(ErrCodeInjection, "test"), ErrCodeInjection, true},
		{"non-matching code", New(ErrCodeInjection, "test"), ErrCodeIO, false},
		{"wrapped error", Wrap(ErrCodeIO, New(ErrCodeParse, "inner"), "outer"), ErrCodeIO, true},
		{"fmt wrapped", fmt.Errorf("stage: %w", New(ErrCodeParse, "inner")), ErrCodeParse, true},
		{"non-Error type", errors.New("plain error"), ErrCodeParse, false},
		{"nil error", nil, ErrCodeParse, false},
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
	if got := GetCode(New(ErrCodeBundle, "x")); got != ErrCodeBundle {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeBundle)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %v, want empty", got)
	}
	if got := GetCode(nil); got != "" {
		t.Errorf("GetCode(nil) = %v, want empty", got)
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), true},
		{"input format", New(ErrCodeInputFormat, "x"), true},
		{"injection", New(ErrCodeInjection, "x"), true},
		{"io", New(ErrCodeIO, "x"), true},
		{"parse", New(ErrCodeParse, "x"), false},
		{"annotation", New(ErrCodeAnnotation, "x"), false},
		{"timeout", New(ErrCodeTimeout, "x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeInvalidInput, "friendly message")); got != "friendly message" {
		t.Errorf("UserMessage() = %q", got)
	}
	if got := UserMessage(errors.New("plain error")); got != "plain error" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInputFormat,
		ErrCodeParse,
		ErrCodeAnnotation,
		ErrCodeInjection,
		ErrCodeIO,
		ErrCodeBundle,
		ErrCodeInvalidInput,
		ErrCodeNotFound,
		ErrCodeTimeout,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
