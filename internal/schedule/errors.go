package schedule

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is wrapped by every input rejected before scheduling.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError names the field that made a scheduling request invalid.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
