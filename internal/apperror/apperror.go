// Package apperror defines the error kinds shared by the stores, services and handlers.
package apperror

import (
	"errors"
	"fmt"
)

// Kinds. Callers match them with errors.Is.
var (
	ErrUnknownIdentity    = errors.New("unknown identity")
	ErrDuplicateIdentity  = errors.New("duplicate identity")
	ErrCredentialMismatch = errors.New("credential mismatch")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrUnavailable        = errors.New("upstream unavailable")
)

// AppError carries a kind plus the machine-readable code and message sent to clients.
// Cause is only ever logged.
type AppError struct {
	Err     error
	Code    string
	Message string
	Field   string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func UnknownIdentity() *AppError {
	return &AppError{
		Err:     ErrUnknownIdentity,
		Code:    "EMAIL_NOT_FOUND",
		Message: "This email is not registered",
	}
}

// DuplicateIdentity reports that field (username or email) is already taken.
func DuplicateIdentity(field string) *AppError {
	return &AppError{
		Err:     ErrDuplicateIdentity,
		Code:    "USER_EXISTS",
		Message: fmt.Sprintf("A user with this %s already exists", field),
		Field:   field,
	}
}

func CredentialMismatch() *AppError {
	return &AppError{
		Err:     ErrCredentialMismatch,
		Code:    "INVALID_PASSWORD",
		Message: "Incorrect password",
	}
}

func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Code:    "UNAUTHENTICATED",
		Message: "User not authenticated",
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// UserNotFound is the NotFound variant the handlers return for an unknown X-User-ID.
func UserNotFound() *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Code:    "USER_NOT_FOUND",
		Message: "User not found",
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Code:    "VALIDATION_FAILED",
		Message: message,
		Field:   field,
	}
}

// Unavailable wraps a database or generation-service failure. The cause stays server-side.
func Unavailable(service string, cause error) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Code:    "UPSTREAM_UNAVAILABLE",
		Message: fmt.Sprintf("%s unavailable", service),
		Cause:   cause,
	}
}
