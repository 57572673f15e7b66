package errors

import (
	"errors"
	"fmt"
)

// Common error types for the marketplace client
var (
	// Session errors
	ErrAuthRequired   = errors.New("authentication required")
	ErrSessionInvalid = errors.New("session invalid")
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrPartialSession = errors.New("partial session: access and refresh tokens must be set together")

	// Credential errors (mock backend)
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrForbidden          = errors.New("forbidden")

	// Cache errors
	ErrNotReady = errors.New("query not ready")

	// General errors
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
