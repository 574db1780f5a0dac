package model

import "time"

// Ticket is the proof of a booking.  It is created once, in the same
// transaction as its booking, and never mutated afterwards.
//
// Fields:
//  ID         – UUID primary key.
//  TicketCode – unique human-readable label, e.g. TKT-A1B2C3-D4E5F6-1700000000000.
//  BookingID  – booking this ticket belongs to (unique).
//  UserID     – ticket holder.
//  EventID    – event the ticket admits to.
//  QRCode     – data URL of a PNG QR image encoding the ticket payload.
//  ExpiresAt  – equals the event date.
//  CreatedAt  – creation timestamp.
type Ticket struct {
	ID         string    `json:"id"`          // tickets.id
	TicketCode string    `json:"ticket_code"` // tickets.ticket_code
	BookingID  string    `json:"booking_id"`  // tickets.booking_id
	UserID     string    `json:"user_id"`     // tickets.user_id
	EventID    string    `json:"event_id"`    // tickets.event_id
	QRCode     string    `json:"qr_code"`     // tickets.qr_code
	ExpiresAt  time.Time `json:"expires_at"`  // tickets.expires_at
	CreatedAt  time.Time `json:"created_at"`  // tickets.created_at
}
