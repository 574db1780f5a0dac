// Package queue carries booking notifications over RabbitMQ: the payload,
// a publisher used after a committed reservation and a background consumer
// that writes one line per confirmed booking to a log file.
package queue

// BookingConfirmedQueue is the durable queue confirmed bookings go to.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published when a reservation commits.  It
// carries enough to log or notify without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID   string `json:"booking_id"`
	TicketID    string `json:"ticket_id"`
	TicketCode  string `json:"ticket_code"`
	UserID      string `json:"user_id"`
	EventID     string `json:"event_id"`
	EventTitle  string `json:"event_title"`
	Location    string `json:"location"`
	EventDate   string `json:"event_date"`
	ConfirmedAt string `json:"confirmed_at"`
}
