package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrValidation          = errors.New("invalid input")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrWeakPassword        = errors.New("password does not meet policy")
	ErrUpstreamUnavailable = errors.New("identity provider unavailable")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrEmailTaken          = errors.New("email already registered")
	ErrRateLimited         = errors.New("too many requests")
	ErrInternal            = errors.New("internal server error")
)

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap extracts the underlying wrapped error.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
