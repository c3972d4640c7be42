package internal

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks a caller contract violation (negative hours, negative costs).
var ErrInvalidInput = errors.New("invalid input")

type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

func NewInputError(field, reason string) error {
	return &InputError{Field: field, Reason: reason}
}
