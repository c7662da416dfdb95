package services

import "errors"

// Error kinds. Handlers map these onto HTTP status codes.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// ErrUserExists is returned by Register for an email that is already taken
var ErrUserExists = newError(ErrConflict, "Already have an account with this email")

// Error is a user-facing message tagged with one of the error kinds above
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}
