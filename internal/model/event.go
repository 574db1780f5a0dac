package model

import "time"

// Event statuses.  Only approved events accept reservations.
const (
	EventPending  = "pending"
	EventApproved = "approved"
	EventRejected = "rejected"
)

// Event is a bookable occasion with a fungible seat count.  The
// reservation core is the only writer of AvailableSeats and only ever
// decrements it.
//
// Fields:
//  ID             – UUID primary key.
//  Title          – display title.
//  Description    – free text, may be empty.
//  Location       – venue as shown on the ticket.
//  EventDate      – when the event takes place; tickets expire at this time.
//  Status         – pending, approved or rejected.
//  AvailableSeats – remaining seats, never negative.
//  CreatedAt      – creation timestamp.
type Event struct {
	ID             string    `json:"id"`              // events.id
	Title          string    `json:"title"`           // events.title
	Description    string    `json:"description"`     // events.description
	Location       string    `json:"location"`        // events.location
	EventDate      time.Time `json:"event_date"`      // events.event_date
	Status         string    `json:"status"`          // events.status
	AvailableSeats int       `json:"available_seats"` // events.available_seats
	CreatedAt      time.Time `json:"created_at"`      // events.created_at
}
