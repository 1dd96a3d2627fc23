// internal/errors/errors.go
package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType classifies application errors; the API maps each type to an HTTP status.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation_error"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeError      ErrorType = "processing_error"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeTimeout    ErrorType = "timeout"
)

var codes = map[ErrorType]string{
	ErrorTypeValidation: "VALIDATION_ERROR",
	ErrorTypeNotFound:   "NOT_FOUND",
	ErrorTypeError:      "PROCESSING_ERROR",
	ErrorTypeConflict:   "CONFLICT",
	ErrorTypeTimeout:    "TIMEOUT",
}

// AppError carries a type and a stable code next to the wrapped cause.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError creates an AppError whose code follows from its type.
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	code, ok := codes[errType]
	if !ok {
		code = "UNKNOWN_ERROR"
	}
	return &AppError{Type: errType, Message: message, Err: cause, Code: code}
}

func NewValidationError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeValidation, message, cause)
}

func NewNotFoundError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, cause)
}

// NewProcessingError marks a failure of the server side (I/O, encoding).
func NewProcessingError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeError, message, cause)
}

func NewConflictError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeConflict, message, cause)
}

// TypeOf returns the type of the first AppError in err's chain, or "".
// Context deadline errors count as timeouts even when unwrapped.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	return ""
}

// Is reports whether err's chain carries an AppError of type t.
func Is(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

func IsValidationError(err error) bool { return Is(err, ErrorTypeValidation) }

func IsNotFoundError(err error) bool { return Is(err, ErrorTypeNotFound) }

func IsConflictError(err error) bool { return Is(err, ErrorTypeConflict) }

// Wrap prefixes err's message. An AppError keeps its type and code; other
// errors become an AppError of errType.
func Wrap(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return NewAppError(errType, message, err)
	}
	wrapped := *appErr
	wrapped.Message = message + ": " + appErr.Message
	return &wrapped
}
