// Package errors defines the typed application error that services return
// and handlers map onto HTTP status codes.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an AppError. The string form prefixes Error() output,
// which failure classification relies on.
type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeConflict   ErrorType = "CONFLICT"
	ErrorTypeInternal   ErrorType = "INTERNAL"
)

// HTTPStatus is the response code for errors of this type.
func (t ErrorType) HTTPStatus() int {
	switch t {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Public reports whether the message may be shown to API callers.
func (t ErrorType) Public() bool {
	return t == ErrorTypeNotFound || t == ErrorTypeValidation || t == ErrorTypeConflict
}

// AppError carries a type, a caller-facing message and an optional cause.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return string(e.Type) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(t ErrorType, message string, cause error) *AppError {
	return &AppError{Type: t, Message: message, Err: cause}
}

func NewNotFoundError(message string) *AppError {
	return newError(ErrorTypeNotFound, message, nil)
}

func NewValidationError(message string) *AppError {
	return newError(ErrorTypeValidation, message, nil)
}

// NewConflictError is returned when a packet or client is not in a state
// that allows the requested transition.
func NewConflictError(message string) *AppError {
	return newError(ErrorTypeConflict, message, nil)
}

func NewInternalError(message string, err error) *AppError {
	return newError(ErrorTypeInternal, message, err)
}

// TypeOf returns the type of the first AppError in the chain, or "" if none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

func IsNotFound(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

func IsConflict(err error) bool {
	return TypeOf(err) == ErrorTypeConflict
}
