package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation               = errors.New("validation failed")
	ErrNotReady                 = errors.New("order not ready for submission")
	ErrPersistence              = errors.New("draft persistence failed")
	ErrSubmissionPartialFailure = errors.New("order submission failed")
	ErrConflictOnComplete       = errors.New("order is no longer sent")
	ErrStaleIndex               = errors.New("cart line index out of range")
	ErrOrderNotFound            = errors.New("order not found")
	ErrProductNotFound          = errors.New("product not found")
)

// ValidationError names the input field the operator has to correct.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
