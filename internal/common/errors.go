// Package common defines the sentinel errors shared by the marketplace
// services. Callers match them with errors.Is.
package common

import (
	"errors"
	"sort"
	"strings"
)

var (
	// Session errors.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")

	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// Credential errors.
	ErrInvalidCode       = errors.New("invalid code")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrNoPasswordSet     = errors.New("no password set")

	// Submission preconditions.
	ErrNotParticipant  = errors.New("not a campaign participant")
	ErrNoSocialAccount = errors.New("no connected social account")

	ErrOperationFailed = errors.New("operation failed")

	ErrValidation = errors.New("validation failed")
)

// ValidationError carries field-level messages keyed by the field's JSON name.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
