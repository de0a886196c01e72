package domain

import (
	"errors"
	"fmt"
)

// Kind is the stable tag carried by every error the core returns to its callers.
type Kind string

const (
	KindNotFound           Kind = "NotFound"
	KindIntegrityViolation Kind = "IntegrityViolation"
	KindStateViolation     Kind = "StateViolation"
	KindCapacityExceeded   Kind = "CapacityExceeded"
	KindAlreadySettled     Kind = "AlreadySettled"
	KindValidation         Kind = "ValidationError"
	KindConflict           Kind = "Conflict"
	KindInternal           Kind = "Internal"
)

// Error is a kind-tagged error with a human-readable message.
// Infrastructure causes are kept in Err so errors.Is/As still reach them.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind when the target is one of the sentinels below, so
// errors.Is(err, ErrAlreadySettled) works for any AlreadySettled error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrIntegrityViolation = &Error{Kind: KindIntegrityViolation}
	ErrStateViolation     = &Error{Kind: KindStateViolation}
	ErrCapacityExceeded   = &Error{Kind: KindCapacityExceeded}
	ErrAlreadySettled     = &Error{Kind: KindAlreadySettled}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrConflict           = &Error{Kind: KindConflict}
)

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return newf(KindNotFound, format, args...)
}

func IntegrityViolation(format string, args ...interface{}) error {
	return newf(KindIntegrityViolation, format, args...)
}

func StateViolation(format string, args ...interface{}) error {
	return newf(KindStateViolation, format, args...)
}

func CapacityExceeded(format string, args ...interface{}) error {
	return newf(KindCapacityExceeded, format, args...)
}

func AlreadySettled(format string, args ...interface{}) error {
	return newf(KindAlreadySettled, format, args...)
}

func Validation(format string, args ...interface{}) error {
	return newf(KindValidation, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return newf(KindConflict, format, args...)
}

// Wrap tags an infrastructure error with a kind and message.
func Wrap(err error, kind Kind, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
