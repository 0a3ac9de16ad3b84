package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by every "missing row" error of this package.
var ErrNotFound = errors.New("not found")

var (
	ErrStationNotFound = fmt.Errorf("station %w", ErrNotFound)
	ErrSensorNotFound  = fmt.Errorf("sensor %w", ErrNotFound)
	ErrReadingNotFound = fmt.Errorf("reading %w", ErrNotFound)
	ErrAlertNotFound   = fmt.Errorf("alert %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)

	// ErrAlertNotActive is returned when a transition matched no ACTIVE row.
	ErrAlertNotActive = errors.New("alert is not active")
	// ErrEmailTaken is returned on duplicate user e-mail.
	ErrEmailTaken = errors.New("email already registered")
	// ErrDuplicateID is returned when a caller supplied id already exists.
	ErrDuplicateID = errors.New("id already exists")
	// ErrUnknownReference is returned when a foreign key points at a missing row.
	ErrUnknownReference = errors.New("referenced row does not exist")
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}
