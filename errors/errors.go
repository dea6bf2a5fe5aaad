// Package errors defines the error kinds shared by the archiver packages.
//
// Import as errs to avoid shadowing the standard library package.
package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"net"
	"os"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindAuthentication
	KindNotFound
	KindAlreadyExists
	KindTransientTimeout
	KindMalformedCredential
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindAuthentication:
		return "authentication error"
	case KindNotFound:
		return "not found"
	case KindAlreadyExists:
		return "already exists"
	case KindTransientTimeout:
		return "timeout"
	case KindMalformedCredential:
		return "malformed credential"
	default:
		return "error"
	}
}

// Sentinels for errors.Is. Any *Error with the same kind matches.
var (
	ErrConfiguration       = &Error{kind: KindConfiguration}
	ErrAuthentication      = &Error{kind: KindAuthentication}
	ErrNotFound            = &Error{kind: KindNotFound}
	ErrAlreadyExists       = &Error{kind: KindAlreadyExists}
	ErrTransientTimeout    = &Error{kind: KindTransientTimeout}
	ErrMalformedCredential = &Error{kind: KindMalformedCredential}
)

// Error carries a kind, a message and the wrapped cause (if any).
type Error struct {
	kind Kind
	msg  string
	orig error
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), orig: err}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := e.msg
	if msg == "" {
		msg = e.kind.String()
	}

	if e.orig != nil {
		return fmt.Sprintf("%s (%v)", msg, e.orig)
	}

	return msg
}

func (e *Error) Unwrap() error { return e.orig }

func (e *Error) Kind() Kind { return e.kind }

// Is matches on kind so that errors.Is(err, ErrNotFound) holds for any not-found error.
func (e *Error) Is(target error) bool {
	var t *Error
	if !stderrs.As(target, &t) || t == nil {
		return false
	}

	return t.kind == e.kind
}

// KindOf returns the kind of the outermost *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if stderrs.As(err, &e) {
		return e.kind
	}

	return KindUnknown
}

// IsTimeout reports whether err is (or wraps) a network or deadline timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	if stderrs.Is(err, ErrTransientTimeout) {
		return true
	}

	if stderrs.Is(err, context.DeadlineExceeded) || stderrs.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var nerr net.Error
	if stderrs.As(err, &nerr) && nerr.Timeout() {
		return true
	}

	return false
}

// Transport converts a transport level failure into a TransientTimeout error if it
// was a timeout and otherwise returns it unchanged.
func Transport(err error, op string) error {
	if err == nil {
		return nil
	}

	if IsTimeout(err) {
		return Wrap(KindTransientTimeout, err, "%s timed out", op)
	}

	return fmt.Errorf("%s (%w)", op, err)
}
