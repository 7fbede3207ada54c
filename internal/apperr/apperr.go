package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error. Kinds map 1:1 to HTTP status codes at
// the edge and are stable across releases.
type Kind string

const (
	KindValidation      Kind = "validation_error"
	KindConflict        Kind = "conflict"
	KindState           Kind = "state_error"
	KindLimitExceeded   Kind = "limit_exceeded"
	KindDeadline        Kind = "deadline_exceeded"
	KindNotFound        Kind = "not_found"
	KindEscrowIntegrity Kind = "escrow_integrity"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newf(KindValidation, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newf(KindConflict, format, args...)
}

func State(format string, args ...any) *Error {
	return newf(KindState, format, args...)
}

func LimitExceeded(format string, args ...any) *Error {
	return newf(KindLimitExceeded, format, args...)
}

func DeadlineExceeded(format string, args ...any) *Error {
	return newf(KindDeadline, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, format, args...)
}

// EscrowIntegrity errors are fatal: never retried, never corrected
// automatically, always surfaced for manual reconciliation.
func EscrowIntegrity(format string, args ...any) *Error {
	return newf(KindEscrowIntegrity, format, args...)
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind to its HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return 400
	case KindConflict:
		return 409
	case KindState:
		return 409
	case KindLimitExceeded:
		return 429
	case KindDeadline:
		return 410
	case KindNotFound:
		return 404
	case KindEscrowIntegrity:
		return 500
	default:
		return 500
	}
}
