// Package repository holds the SQL access layer.  The sentinel values below
// let higher layers such as the reservation service and handlers tell
// failure scenarios apart without inspecting driver errors.
package repository

import "errors"

// ErrEventNotFound is returned when no event row matches the id.
var ErrEventNotFound = errors.New("event not found")

// ErrDuplicateBooking is returned when the (user_id, event_id) unique index
// rejects a booking insert.  The service translates it into a conflict.
var ErrDuplicateBooking = errors.New("duplicate booking")

// ErrDuplicateTicket is returned when a ticket code collides with an
// existing one.  The reservation unit treats it as retryable.
var ErrDuplicateTicket = errors.New("duplicate ticket code")

// ErrTicketNotFound is returned when no ticket matches the code for the
// requesting user.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrBookingNotFound is returned when a booking row is expected but absent.
var ErrBookingNotFound = errors.New("booking not found")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")
