package models

import (
	"errors"
	"fmt"
)

// Error codes surfaced to callers. Mutation failures carry one of these so
// the embedding UI can decide how to render them.
const (
	CodeNetworkFailure = "NETWORK_FAILURE"
	CodeNotFound       = "NOT_FOUND"
	CodeForbidden      = "FORBIDDEN"
	CodeConflict       = "CONFLICT"
	CodeTimeout        = "TIMEOUT"
	CodeValidation     = "VALIDATION_ERROR"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNetworkError(err error) *AppError {
	return &AppError{
		Code:    CodeNetworkFailure,
		Message: "request did not complete",
		Err:     err,
	}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

func NewTimeoutError(err error) *AppError {
	return &AppError{
		Code:    CodeTimeout,
		Message: "request timed out",
		Err:     err,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func IsNotFound(err error) bool  { return HasCode(err, CodeNotFound) }
func IsForbidden(err error) bool { return HasCode(err, CodeForbidden) }
func IsConflict(err error) bool  { return HasCode(err, CodeConflict) }
func IsTimeout(err error) bool   { return HasCode(err, CodeTimeout) }
