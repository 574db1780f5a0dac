package model

import "time"

// Booking records that a user holds one seat for an event.  At most one
// booking exists per (user, event).  TicketID stays nil only inside the
// reservation transaction that creates both records.
type Booking struct {
	ID        string    `json:"id"`                  // bookings.id
	UserID    string    `json:"user_id"`             // bookings.user_id
	EventID   string    `json:"event_id"`            // bookings.event_id
	TicketID  *string   `json:"ticket_id,omitempty"` // bookings.ticket_id (nullable)
	CreatedAt time.Time `json:"created_at"`          // bookings.created_at
}

// EventSummary is the slice of an event shown next to a booking.
type EventSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	EventDate time.Time `json:"event_date"`
	Location  string    `json:"location"`
}

// TicketSummary is the slice of a ticket shown next to a booking.
type TicketSummary struct {
	ID         string    `json:"id"`
	TicketCode string    `json:"ticket_code"`
	QRCode     string    `json:"qr_code"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// BookingDetail is a booking joined with its event and ticket, as returned
// by the booking listing.
type BookingDetail struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Event     EventSummary   `json:"event"`
	Ticket    *TicketSummary `json:"ticket,omitempty"`
}
