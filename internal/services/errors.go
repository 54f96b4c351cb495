package services

import (
	"errors"
	"fmt"

	"trustedhands/internal/repositories/interfaces"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	// ErrEscrowFrozen is an invalid state that callers can tell apart: the
	// payment is held by an open dispute.
	ErrEscrowFrozen  = fmt.Errorf("%w: escrow frozen", ErrInvalidState)
	ErrConflict      = errors.New("conflict")
	ErrValidation    = errors.New("validation error")
	ErrNotAComplaint = errors.New("ticket is not a complaint")
	ErrForbidden     = errors.New("forbidden")
)

// ServiceError carries the failing operation and a caller-facing message.
// errors.Is matches it against its Kind.
type ServiceError struct {
	Kind    error
	Op      string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Kind
}

func newError(kind error, op, format string, args ...interface{}) error {
	return &ServiceError{
		Kind:    kind,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// notFoundOr maps a repository miss onto ErrNotFound and wraps anything else.
func notFoundOr(err error, op, what string) error {
	if errors.Is(err, interfaces.ErrNotFound) {
		return newError(ErrNotFound, op, "%s not found", what)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorMessage returns the caller-facing message of a ServiceError, or
// fallback for any other error.
func ErrorMessage(err error, fallback string) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Message
	}
	return fallback
}
