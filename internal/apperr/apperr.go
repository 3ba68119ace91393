// Package apperr classifies failures so callers can decide whether an
// operation is worth retrying. The core itself never retries.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindForbidden
	KindTransientStore
	KindPermanentStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindTransientStore:
		return "transient_store"
	case KindPermanentStore:
		return "permanent_store"
	default:
		return "unknown"
	}
}

type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Kind() Kind { return e.kind }

func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error while keeping it reachable
// through errors.Is / errors.As.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{kind: kind, msg: msg, err: err}
}

// KindOf walks the unwrap chain and returns the first classified kind,
// or KindUnknown when nothing in the chain carries one.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.kind
	}
	return KindUnknown
}

// IsRetryable reports whether the caller may retry the failed operation
// with backoff.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransientStore
}

func Validation(msg string) *Error { return New(KindValidation, msg) }
func Conflict(msg string) *Error   { return New(KindConflict, msg) }
func NotFound(msg string) *Error   { return New(KindNotFound, msg) }
func Forbidden(msg string) *Error  { return New(KindForbidden, msg) }
