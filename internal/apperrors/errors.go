package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
// The reconciliation engine treats this as "already synced" and never surfaces it.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates a write that would rewrite or delete ledger history.
// Guard rejections are a hard stop and must never be silently swallowed.
var ErrForbidden = errors.New("operation forbidden")

// ErrInsufficientBalance indicates a payout request exceeding the running balance.
var ErrInsufficientBalance = errors.New("insufficient funds")

// AppError wraps an underlying error with an HTTP-equivalent code and a message
// suitable for the external caller.
type AppError struct {
	Code    int
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

// NewAppError creates a new AppError with the given code, message and cause.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError creates an AppError that also matches ErrNotFound via errors.Is.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: 404, Message: message, Err: ErrNotFound}
}
