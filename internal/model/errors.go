package model

import (
	"errors"
	"fmt"
)

// ErrInvalidEntity is the root of every structural validation failure.
var ErrInvalidEntity = errors.New("invalid entity")

// ValidationError names the entity and field that broke a constraint.
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Entity, e.Field, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidEntity).
func (e *ValidationError) Unwrap() error {
	return ErrInvalidEntity
}

func invalid(entity, field, reason string) error {
	return &ValidationError{Entity: entity, Field: field, Reason: reason}
}
