package models

import (
	"errors"
	"strings"
)

// Common errors used throughout the application
var (
	ErrNotFound         = errors.New("not found")
	ErrEventNotFound    = errors.New("event not found")
	ErrTemplateNotFound = errors.New("event template not found")
	ErrUnknownDoctype   = errors.New("unknown doctype")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicateEntry   = errors.New("duplicate entry")
)

// ValidationError carries a message meant to be shown to the user as-is.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError.
func NewValidationError(message string, fields ...string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// MissingFieldsError reports mandatory fields that have no value.
func MissingFieldsError(labels []string, fields []string) *ValidationError {
	return &ValidationError{
		Message: "Missing required fields: " + strings.Join(labels, ", "),
		Fields:  fields,
	}
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is any of the not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrTemplateNotFound)
}
