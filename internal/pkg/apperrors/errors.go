package apperrors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// Resource errors
	ErrResourceNotFound = errors.New("resource not found")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
)

// Admission request errors
var (
	ErrRequestNotFound         = NewResourceNotFoundError("admission request not found")
	ErrIdentificationExists    = errors.New("identification already exists")
	ErrInvalidStatus           = fmt.Errorf("%w: invalid status", ErrValidationFailed)
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// Grimoire errors
var (
	ErrInvalidCatalog      = errors.New("invalid grimoire catalog")
	ErrAssignmentExists    = errors.New("grimoire already assigned")
	ErrAssignmentRecording = errors.New("failed to record grimoire assignment")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewValidationError creates a validation error bound to a single field.
func NewValidationError(field, message string) *CustomError {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
		Field:   field,
	}
}

// NewInvalidStatusError reports a status literal outside the known set. It
// matches both ErrInvalidStatus and ErrValidationFailed.
func NewInvalidStatusError(message string) *CustomError {
	return &CustomError{
		Err:     ErrInvalidStatus,
		Message: message,
		Field:   "status",
	}
}

// Is returns whether target matches any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Field   string
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}
