package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation wraps every input rejection.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized is returned when no valid caller identity is present.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials represents login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden is returned when the caller lacks a capability.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned when the request clashes with stored state.
	ErrConflict = errors.New("conflict")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
