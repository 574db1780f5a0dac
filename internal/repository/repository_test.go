package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/database/dbtest"
	"github.com/iliyamo/event-booking/internal/model"
)

func seedEvent(t *testing.T, repo *EventRepo, status string, seats int) *model.Event {
	t.Helper()
	e := &model.Event{
		ID:             uuid.NewString(),
		Title:          "Jazz Night",
		Location:       "Blue Hall",
		EventDate:      time.Date(2030, 5, 1, 20, 0, 0, 0, time.UTC),
		Status:         status,
		AvailableSeats: seats,
	}
	require.NoError(t, repo.Create(context.Background(), e))
	return e
}

func inTx(t *testing.T, db *database.DB, fn func(tx *sql.Tx)) {
	t.Helper()
	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	fn(tx)
	require.NoError(t, tx.Commit())
}

func TestEventRepo(t *testing.T) {
	db := dbtest.New(t)
	repo := NewEventRepo(db)
	ctx := context.Background()

	approved := seedEvent(t, repo, model.EventApproved, 1)
	pending := seedEvent(t, repo, model.EventPending, 5)

	got, err := repo.GetByID(ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, approved.Title, got.Title)
	assert.True(t, approved.EventDate.Equal(got.EventDate))

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrEventNotFound)

	list, err := repo.ListByStatus(ctx, model.EventApproved)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, approved.ID, list[0].ID)

	inTx(t, db, func(tx *sql.Tx) {
		ev, err := repo.GetByIDForUpdateTx(ctx, tx, approved.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, ev.AvailableSeats)

		ok, err := repo.DecrementSeatTx(ctx, tx, approved.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.DecrementSeatTx(ctx, tx, approved.ID)
		require.NoError(t, err)
		assert.False(t, ok, "sold out")

		ok, err = repo.DecrementSeatTx(ctx, tx, pending.ID)
		require.NoError(t, err)
		assert.False(t, ok, "not approved")
	})

	got, err = repo.GetByID(ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableSeats)
}

func TestBookingAndTicketRepo(t *testing.T) {
	db := dbtest.New(t)
	events := NewEventRepo(db)
	bookings := NewBookingRepo(db.DB)
	tickets := NewTicketRepo(db.DB)
	ctx := context.Background()

	first := seedEvent(t, events, model.EventApproved, 10)
	second := seedEvent(t, events, model.EventApproved, 10)
	userID := uuid.NewString()

	b1 := &model.Booking{ID: uuid.NewString(), UserID: userID, EventID: first.ID}
	tk := &model.Ticket{
		ID:         uuid.NewString(),
		TicketCode: "TKT-AAAAAA-BBBBBB-1",
		BookingID:  b1.ID,
		UserID:     userID,
		EventID:    first.ID,
		QRCode:     "data:image/png;base64,AAAA",
		ExpiresAt:  first.EventDate,
	}
	inTx(t, db, func(tx *sql.Tx) {
		exists, err := bookings.ExistsTx(ctx, tx, userID, first.ID)
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, bookings.CreateTx(ctx, tx, b1))
		require.NoError(t, tickets.CreateTx(ctx, tx, tk))
		require.NoError(t, bookings.LinkTicketTx(ctx, tx, b1.ID, tk.ID))

		exists, err = bookings.ExistsTx(ctx, tx, userID, first.ID)
		require.NoError(t, err)
		assert.True(t, exists)

		assert.ErrorIs(t, bookings.LinkTicketTx(ctx, tx, b1.ID, tk.ID), ErrBookingNotFound)
	})

	b2 := &model.Booking{ID: uuid.NewString(), UserID: userID, EventID: second.ID}
	inTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, bookings.CreateTx(ctx, tx, b2))

		dup := &model.Booking{ID: uuid.NewString(), UserID: userID, EventID: first.ID}
		assert.ErrorIs(t, bookings.CreateTx(ctx, tx, dup), ErrDuplicateBooking)

		sameCode := *tk
		sameCode.ID = uuid.NewString()
		sameCode.BookingID = b2.ID
		assert.ErrorIs(t, tickets.CreateTx(ctx, tx, &sameCode), ErrDuplicateTicket)
	})

	list, err := bookings.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b1.ID, list[0].ID)
	assert.Equal(t, "Jazz Night", list[0].Event.Title)
	assert.Equal(t, "Blue Hall", list[0].Event.Location)
	require.NotNil(t, list[0].Ticket)
	assert.Equal(t, tk.TicketCode, list[0].Ticket.TicketCode)
	assert.Equal(t, b2.ID, list[1].ID)
	assert.Nil(t, list[1].Ticket)

	empty, err := bookings.ListByUser(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, empty)

	got, err := tickets.GetByCodeForUser(ctx, userID, tk.TicketCode)
	require.NoError(t, err)
	assert.Equal(t, b1.ID, got.BookingID)

	_, err = tickets.GetByCodeForUser(ctx, uuid.NewString(), tk.TicketCode)
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestUserAndTokenRepo(t *testing.T) {
	db := dbtest.New(t)
	users := NewUserRepo(db.DB)
	tokens := NewTokenRepo(db.DB)
	ctx := context.Background()

	u, err := users.Create(ctx, "Ada", " Ada@Example.com ", "password1", model.RoleUser, 4)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)

	_, err = users.Create(ctx, "Other", "ada@example.com", "password2", model.RoleUser, 4)
	assert.ErrorIs(t, err, ErrEmailExists)

	got, err := users.GetByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = users.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, tokens.StoreRefresh(ctx, u.ID, "hash-1", time.Now().Add(time.Hour)))
	require.NoError(t, tokens.StoreRefresh(ctx, u.ID, "hash-old", time.Now().Add(-time.Hour)))

	owner, err := tokens.ValidateRefresh(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, owner)

	_, err = tokens.ValidateRefresh(ctx, "hash-old")
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = tokens.ValidateRefresh(ctx, "missing")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	require.NoError(t, tokens.RevokeByHash(ctx, "hash-1"))
	_, err = tokens.ValidateRefresh(ctx, "hash-1")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// a second revoke of the same token must lose
	assert.ErrorIs(t, tokens.RevokeByHash(ctx, "hash-1"), ErrTokenInvalid)
	assert.ErrorIs(t, tokens.RevokeByHash(ctx, "missing"), ErrTokenInvalid)
}
