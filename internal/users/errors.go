package users

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when no user exists for the given id
	ErrNotFound = errors.New("user not found")

	// ErrDuplicateEmail is returned when the email belongs to another user
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrUnavailable marks transient storage failures (timeouts, lost
	// connections). Callers may retry.
	ErrUnavailable = errors.New("user storage unavailable")
)

// ValidationError represents errors in request validation, keyed by the
// JSON field name
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}
