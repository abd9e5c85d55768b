package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a requested resource does not exist in the store.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("already exists")

// ErrAlreadyInitialized is returned by CreateFirstAdmin once any admin exists.
var ErrAlreadyInitialized = errors.New("an admin account already exists")

// classify wraps err with op, mapping unique-constraint violations from
// either dialect onto ErrConflict.
func classify(op string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
