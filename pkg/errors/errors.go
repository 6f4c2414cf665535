// Package errors defines the typed application errors shared by services and
// the HTTP layer. Services return *AppError values; the transport layer maps
// the error type to a status code and never exposes wrapped internal errors
// to clients.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies an application error for transport mapping.
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "validation_error"
	ErrorTypeUnauthorized    ErrorType = "unauthorized"
	ErrorTypeForbidden       ErrorType = "forbidden"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeConflict        ErrorType = "conflict"
	ErrorTypePayloadTooLarge ErrorType = "payload_too_large"
	ErrorTypeInternal        ErrorType = "internal_error"
)

// AppError carries a classification, a client-safe message/detail pair, and
// an optional wrapped cause that stays server-side.
type AppError struct {
	Type    ErrorType
	Message string
	Detail  string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError reports malformed or semantically invalid input.
func NewValidationError(message, detail string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message, Detail: detail}
}

// NewUnauthorizedError reports a missing or unusable credential.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Type: ErrorTypeUnauthorized, Message: message}
}

// NewForbiddenError reports an authenticated caller lacking access.
func NewForbiddenError(message string) *AppError {
	return &AppError{Type: ErrorTypeForbidden, Message: message}
}

// NewNotFoundError reports an unknown resource; resource names the kind,
// e.g. "project".
func NewNotFoundError(resource string) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Message: resource + " not found"}
}

// NewConflictError reports a state conflict such as a duplicate name or an
// invariant violation.
func NewConflictError(message, detail string) *AppError {
	return &AppError{Type: ErrorTypeConflict, Message: message, Detail: detail}
}

// NewPayloadTooLargeError reports a request body over the configured limit.
func NewPayloadTooLargeError(detail string) *AppError {
	return &AppError{Type: ErrorTypePayloadTooLarge, Message: "payload too large", Detail: detail}
}

// NewInternalError wraps an unexpected failure; err is logged server-side and
// never serialized to clients.
func NewInternalError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// AsAppError unwraps err to an *AppError when possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err is an *AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Type == t
}

// IsNotFound reports whether err is a not-found application error.
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsConflict reports whether err is a conflict application error.
func IsConflict(err error) bool {
	return IsType(err, ErrorTypeConflict)
}
