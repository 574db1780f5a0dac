package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/model"
)

// BookingRepo stores bookings.  Writes only happen inside the reservation
// transaction; ListByUser is the read side.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// ExistsTx reports whether the user already holds a booking for the event.
func (r *BookingRepo) ExistsTx(ctx context.Context, tx *sql.Tx, userID, eventID string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM bookings WHERE user_id = ? AND event_id = ? LIMIT 1`, userID, eventID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check booking: %w", err)
	}
	return true, nil
}

// CreateTx inserts b within tx.  A violation of the (user_id, event_id)
// unique index is reported as ErrDuplicateBooking.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (id, user_id, event_id, created_at) VALUES (?, ?, ?, ?)`,
		b.ID, b.UserID, b.EventID, b.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateBooking
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// LinkTicketTx sets bookings.ticket_id.  The link is written once; a
// booking that already has a ticket is left untouched and reported as
// ErrBookingNotFound.
func (r *BookingRepo) LinkTicketTx(ctx context.Context, tx *sql.Tx, bookingID, ticketID string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET ticket_id = ? WHERE id = ? AND ticket_id IS NULL`, ticketID, bookingID)
	if err != nil {
		return fmt.Errorf("link ticket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("link ticket: %w", err)
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// ListByUser returns the user's bookings in insertion order, each joined
// with its event summary and ticket.  A user with no bookings gets an empty
// slice.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.BookingDetail, error) {
	const q = `
SELECT b.id, b.created_at,
       e.id, e.title, e.event_date, e.location,
       t.id, t.ticket_code, t.qr_code, t.expires_at
FROM bookings b
JOIN events e ON e.id = b.event_id
LEFT JOIN tickets t ON t.id = b.ticket_id
WHERE b.user_id = ?
ORDER BY b.seq`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	out := make([]model.BookingDetail, 0)
	for rows.Next() {
		var (
			d         model.BookingDetail
			ticketID  sql.NullString
			code      sql.NullString
			qr        sql.NullString
			expiresAt sql.NullTime
		)
		if err := rows.Scan(&d.ID, &d.CreatedAt,
			&d.Event.ID, &d.Event.Title, &d.Event.EventDate, &d.Event.Location,
			&ticketID, &code, &qr, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		if ticketID.Valid {
			d.Ticket = &model.TicketSummary{
				ID:         ticketID.String,
				TicketCode: code.String,
				QRCode:     qr.String,
				ExpiresAt:  expiresAt.Time,
			}
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return out, nil
}
