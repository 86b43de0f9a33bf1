package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPollNotFound  = errors.New("poll not found")
	ErrPollInactive  = errors.New("poll is not active")
	ErrInvalidOption = errors.New("invalid option for this poll")
	ErrResultsHidden = errors.New("results are hidden for this poll")
	ErrSlugTaken     = errors.New("slug already taken")
	ErrValidation    = errors.New("validation failed")
	ErrInternal      = errors.New("internal server error")
)

// ValidationError carries the offending field. It matches ErrValidation
// under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
