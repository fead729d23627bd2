package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrNoMembers         = errors.New("at least one member is required")
	ErrDuplicateMember   = errors.New("duplicate member")
	ErrBlankMemberID     = errors.New("blank member id")
	ErrQuantityMismatch  = errors.New("member quantities do not match members")
	ErrPerPersonMismatch = errors.New("per-person amount does not match total")
	ErrEmptyName         = errors.New("empty name")
)

// ValidationError reports a malformed value. It is never retried.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// PersistenceError reports a failed read or write against the key-value store.
type PersistenceError struct {
	Op  string // "load" or "save"
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPersistence reports whether err carries a *PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
