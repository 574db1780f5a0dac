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

// EventRepo reads events and performs the single mutation the booking core
// is allowed: decrementing available seats.  All timestamps are stored in
// UTC.
type EventRepo struct {
	db   *sql.DB
	lock string
}

// NewEventRepo returns an EventRepo bound to db.  The handle's dialect
// decides whether GetByIDForUpdateTx takes a row lock.
func NewEventRepo(db *database.DB) *EventRepo {
	return &EventRepo{db: db.DB, lock: db.LockClause()}
}

const eventColumns = `id, title, description, location, event_date, status, available_seats, created_at`

// Create inserts an event.  A missing ID or CreatedAt is not generated
// here; callers (seeding, tests) supply them.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events (` + eventColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.Title, e.Description, e.Location, e.EventDate.UTC(), e.Status, e.AvailableSeats, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID returns the event with the given id or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

// GetByIDForUpdateTx reads the event inside tx and, on MySQL, holds an
// exclusive row lock on it until the transaction ends.  Concurrent
// reservations for the same event therefore serialise here.
func (r *EventRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.Event, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`+r.lock, id)
	return scanEvent(row)
}

// DecrementSeatTx takes one seat from an approved event that still has
// seats.  It reports false, without error, when the guard matched no row.
func (r *EventRepo) DecrementSeatTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	const q = `UPDATE events SET available_seats = available_seats - 1
		WHERE id = ? AND status = ? AND available_seats > 0`
	res, err := tx.ExecContext(ctx, q, id, model.EventApproved)
	if err != nil {
		return false, fmt.Errorf("decrement seats: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement seats: %w", err)
	}
	return n == 1, nil
}

// ListByStatus returns events with the given status ordered by date.
func (r *EventRepo) ListByStatus(ctx context.Context, status string) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE status = ? ORDER BY event_date, id`, status)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(s rowScanner) (*model.Event, error) {
	var e model.Event
	err := s.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.EventDate, &e.Status, &e.AvailableSeats, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return &e, nil
}
