package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure.  Kinds are themselves errors so that
// callers can write errors.Is(err, service.Conflict).
type Kind string

const (
	NotFound        Kind = "NotFound"
	InvalidState    Kind = "InvalidState"
	Conflict        Kind = "Conflict"
	ValidationError Kind = "ValidationError"
	Internal        Kind = "Internal"
)

func (k Kind) Error() string { return string(k) }

// Error is the single error type returned by the service layer.  Message
// is safe to show to clients; Err keeps the underlying cause for logs.
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

// Is matches a bare Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Messages shared with handlers and tests.
const (
	MsgEventNotFound  = "event not found"
	MsgNotApproved    = "event is not approved for booking"
	MsgAlreadyBooked  = "you have already booked this event"
	MsgSoldOut        = "no seats available"
	MsgTryAgain       = "booking is busy, please try again"
	MsgTicketNotFound = "ticket not found"
	MsgInvalidData    = "booking data rejected by storage constraints"
	MsgInternal       = "internal server error"
)

// AsError returns err as *Error, wrapping anything else as Internal.
func AsError(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return newError(Internal, MsgInternal, err)
}
