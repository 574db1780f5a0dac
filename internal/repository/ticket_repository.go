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

// TicketRepo stores issued tickets.  Tickets are insert-only.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// CreateTx inserts t within tx.  A unique violation (ticket code or
// booking) is reported as ErrDuplicateTicket.
func (r *TicketRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	const q = `INSERT INTO tickets (id, ticket_code, booking_id, user_id, event_id, qr_code, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q,
		t.ID, t.TicketCode, t.BookingID, t.UserID, t.EventID, t.QRCode, t.ExpiresAt.UTC(), t.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateTicket
		}
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

// GetByCodeForUser returns the ticket with the given code when it belongs
// to userID.  Someone else's ticket is indistinguishable from a missing one.
func (r *TicketRepo) GetByCodeForUser(ctx context.Context, userID, code string) (*model.Ticket, error) {
	const q = `SELECT id, ticket_code, booking_id, user_id, event_id, qr_code, expires_at, created_at
		FROM tickets WHERE ticket_code = ? AND user_id = ?`
	var t model.Ticket
	err := r.db.QueryRowContext(ctx, q, code, userID).Scan(
		&t.ID, &t.TicketCode, &t.BookingID, &t.UserID, &t.EventID, &t.QRCode, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return &t, nil
}
