// Package apperr defines the error kinds returned by the booking and escrow services.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindUnauthorized Kind = "unauthorized"
	KindConflict     Kind = "conflict"
	KindValidation   Kind = "validation"
	KindProcessor    Kind = "processor"
	KindSignature    Kind = "signature"
	KindInternal     Kind = "internal"
)

// Sentinels for errors.Is checks against a kind.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrProcessor    = &Error{Kind: KindProcessor}
	ErrSignature    = &Error{Kind: KindSignature}
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error     { return newf(KindNotFound, format, args...) }
func InvalidState(format string, args ...any) error { return newf(KindInvalidState, format, args...) }
func Unauthorized(format string, args ...any) error { return newf(KindUnauthorized, format, args...) }
func Conflict(format string, args ...any) error     { return newf(KindConflict, format, args...) }
func Validation(format string, args ...any) error   { return newf(KindValidation, format, args...) }

// Processor wraps a payment processor failure. Msg is safe to show to callers, Err is not.
func Processor(msg string, err error) error {
	return &Error{Kind: KindProcessor, Msg: msg, Err: err}
}

func Signature(err error) error {
	return &Error{Kind: KindSignature, Msg: "invalid webhook signature", Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the caller-safe message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == KindProcessor || e.Kind == KindSignature {
			return e.Msg
		}
		return e.Error()
	}
	return "internal server error"
}
