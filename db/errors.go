package db

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Failure kinds surfaced to callers. Controllers map these to HTTP status
// codes; nothing in this package panics on bad input.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindConflict
	KindInvalidState
	KindValidation
)

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func InvalidStatef(format string, args ...any) error {
	return &Error{Kind: KindInvalidState, Msg: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the failure kind, or 0 for untyped (internal) errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool     { return KindOf(err) == KindConflict }
func IsInvalidState(err error) bool { return KindOf(err) == KindInvalidState }
func IsValidation(err error) bool   { return KindOf(err) == KindValidation }

// asNotFound converts gorm's record-not-found into the taxonomy; other
// errors pass through untyped.
func asNotFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFoundf(format, args...)
	}
	return err
}

// isUniqueViolation detects the store-level unique constraints (partial
// indexes in Migrate) firing on a race the fast-path checks missed.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || // postgres
		strings.Contains(msg, "UNIQUE constraint failed") // sqlite
}
