// Package apperr holds the error taxonomy shared by every ledger package.
// Callers wrap one of the sentinels with fmt.Errorf("...: %w", ...) and the
// HTTP layer maps the sentinel to a status code.
package apperr

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrReferentialIntegrity = errors.New("unknown reference")
	ErrValidation           = errors.New("validation failed")
	ErrConflict             = errors.New("conflicting write")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrStorage              = errors.New("storage failure")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Reference(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrReferentialIntegrity, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Transition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Storage wraps a database error. Errors that already carry a taxonomy
// sentinel pass through unchanged so a rollback keeps the original cause.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s: %v", ErrConflict, op, err)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

// Classified reports whether err already wraps one of the sentinels.
func Classified(err error) bool {
	for _, s := range []error{ErrNotFound, ErrReferentialIntegrity, ErrValidation, ErrConflict, ErrInvalidTransition, ErrStorage} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}
