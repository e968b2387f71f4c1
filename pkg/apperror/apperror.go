package apperror

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures returned by the core so callers can map them
// to user-facing responses without parsing messages.
type ErrorType string

const (
	// ErrorTypeInsufficientResources means a reservation found fewer available
	// units than requested. Expected under contention.
	ErrorTypeInsufficientResources ErrorType = "INSUFFICIENT_RESOURCES"

	// ErrorTypeInvalidTransition means the booking is not in a state that
	// allows the requested transition.
	ErrorTypeInvalidTransition ErrorType = "INVALID_TRANSITION"

	// ErrorTypeValidation means the input or the proposed state breaks a rule.
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeConflict means an optimistic-concurrency check failed.
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeNotFound means the addressed record does not exist.
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeInternal means storage or another dependency failed.
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError is the typed error returned across the service boundary.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewInsufficientResourcesError creates an insufficient resources error
func NewInsufficientResourcesError(format string, args ...any) *AppError {
	return &AppError{Type: ErrorTypeInsufficientResources, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidTransitionError creates an invalid transition error
func NewInvalidTransitionError(format string, args ...any) *AppError {
	return &AppError{Type: ErrorTypeInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError creates a validation error
func NewValidationError(format string, args ...any) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: fmt.Sprintf(format, args...)}
}

// NewConflictError creates a conflict error
func NewConflictError(format string, args ...any) *AppError {
	return &AppError{Type: ErrorTypeConflict, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(format string, args ...any) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewInternalError wraps an infrastructure failure
func NewInternalError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// TypeOf returns the type of the first AppError in err's chain, or
// ErrorTypeInternal when there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// Is reports whether err carries an AppError of the given type.
func Is(err error, t ErrorType) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

func IsInsufficientResources(err error) bool { return Is(err, ErrorTypeInsufficientResources) }
func IsInvalidTransition(err error) bool     { return Is(err, ErrorTypeInvalidTransition) }
func IsValidation(err error) bool            { return Is(err, ErrorTypeValidation) }
func IsConflict(err error) bool              { return Is(err, ErrorTypeConflict) }
func IsNotFound(err error) bool              { return Is(err, ErrorTypeNotFound) }
