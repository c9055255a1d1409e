package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("entry not found")
	ErrValidation       = errors.New("validation failed")
	ErrEmptyUpdate      = errors.New("no fields to update")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError names the payload field that was rejected.
// errors.Is(err, ErrValidation) reports true for it.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
