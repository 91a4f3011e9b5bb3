// Package apperror defines the domain error taxonomy shared by every layer.
//
// Each kind of failure has a sentinel (ErrNotFound, ErrDuplicateUser, ...).
// Constructors return an *AppError that wraps the sentinel, so callers test
// the kind with errors.Is and read the human-readable message with errors.As.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation error")
	ErrConflict       = errors.New("conflict")
	ErrForbidden      = errors.New("forbidden")
	ErrDuplicateUser  = errors.New("duplicate user")
	ErrUnknownUser    = errors.New("unknown user")
	ErrBadCredentials = errors.New("bad credentials")
	ErrMailTransport  = errors.New("mail transport failure")
)

type AppError struct {
	Err     error  // sentinel
	Message string // Human-readable error message
	Field   string // Optional: form field causing the error
	Cause   error  // Optional: underlying error (e.g. SMTP failure)
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the cause so errors.Is matches either.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation on a named field.
func Conflict(field, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

func DuplicateUser(email string) *AppError {
	return &AppError{
		Err:     ErrDuplicateUser,
		Message: fmt.Sprintf("a user with email %s already exists, try logging in", email),
		Field:   "email",
	}
}

func UnknownUser(email string) *AppError {
	return &AppError{
		Err:     ErrUnknownUser,
		Message: fmt.Sprintf("no user with email %s, please register", email),
		Field:   "email",
	}
}

// BadCredentials deliberately does not say which part was wrong beyond the password.
func BadCredentials() *AppError {
	return &AppError{
		Err:     ErrBadCredentials,
		Message: "incorrect password",
		Field:   "password",
	}
}

func MailTransportFailure(cause error) *AppError {
	return &AppError{
		Err:     ErrMailTransport,
		Message: "your message could not be sent, please try again later",
		Cause:   cause,
	}
}

// MessageOf returns the user-facing message of an AppError in err's chain,
// or fallback when there is none.
func MessageOf(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return fallback
}
