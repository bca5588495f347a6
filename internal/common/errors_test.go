package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Is(t *testing.T) {
	err := fmt.Errorf("create campaign: %w", &ValidationError{Fields: map[string]string{"title": "is required", "budget": "must be greater than 0"}})

	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected errors.Is(err, ErrValidation)")
	}

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected errors.As to find *ValidationError")
	}
	if len(ve.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(ve.Fields))
	}

	want := "validation failed: budget: must be greater than 0; title: is required"
	if got := ve.Error(); got != want {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestValidationError_NotOtherSentinels(t *testing.T) {
	err := NewValidationError("code", "must be 6 digits")
	if errors.Is(err, ErrInvalidCode) {
		t.Fatalf("validation error must not match ErrInvalidCode")
	}
}
