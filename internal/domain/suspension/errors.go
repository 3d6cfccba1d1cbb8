package suspension

import (
	"errors"
	"fmt"
)

// Sentinel kinds for suspension errors.
var (
	ErrValidation       = errors.New("invalid suspension request")
	ErrAlreadySuspended = errors.New("member already has an active suspension for this trigger")
)

// ValidationError names the offending input. It wraps ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
