package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/database/dbtest"
	"github.com/iliyamo/event-booking/internal/lib/logger/handlers/slogdiscard"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/ticket"
)

type fixture struct {
	db       *database.DB
	events   *repository.EventRepo
	bookings *repository.BookingRepo
	tickets  *repository.TicketRepo
	pub      *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	return &fixture{
		db:       db,
		events:   repository.NewEventRepo(db),
		bookings: repository.NewBookingRepo(db.DB),
		tickets:  repository.NewTicketRepo(db.DB),
		pub:      &recordingPublisher{},
	}
}

func (f *fixture) stores() Stores {
	return Stores{Events: f.events, Bookings: f.bookings, Tickets: f.tickets}
}

func (f *fixture) service(stores Stores, issuer Issuer, opts ...ReservationOption) *ReservationService {
	cfg := config.Reservation{MaxAttempts: 3, Timeout: 5 * time.Second, Backoff: time.Millisecond}
	return NewReservationService(f.db, stores, issuer, f.pub, cfg, slogdiscard.NewDiscardLogger(), opts...)
}

func (f *fixture) event(t *testing.T, status string, seats int) *model.Event {
	t.Helper()
	e := &model.Event{
		ID:             uuid.NewString(),
		Title:          "E1",
		Location:       "Main Hall",
		EventDate:      time.Date(2030, 6, 1, 19, 0, 0, 0, time.UTC),
		Status:         status,
		AvailableSeats: seats,
	}
	require.NoError(t, f.events.Create(context.Background(), e))
	return e
}

func (f *fixture) seats(t *testing.T, eventID string) int {
	t.Helper()
	e, err := f.events.GetByID(context.Background(), eventID)
	require.NoError(t, err)
	return e.AvailableSeats
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingConfirmedEvent
	err    error
}

func (p *recordingPublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) published() []queue.BookingConfirmedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.BookingConfirmedEvent(nil), p.events...)
}

// failingTickets wraps a TicketStore and fails the first `fails` inserts
// with err (all of them when fails < 0).
type failingTickets struct {
	TicketStore
	err   error
	fails int32
	calls atomic.Int32
}

func (f *failingTickets) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
	n := f.calls.Add(1)
	if f.fails < 0 || n <= f.fails {
		return f.err
	}
	return f.TicketStore.CreateTx(ctx, tx, t)
}

type issuerFunc func(event *model.Event, userID, bookingID string) (*model.Ticket, error)

func (fn issuerFunc) Issue(event *model.Event, userID, bookingID string) (*model.Ticket, error) {
	return fn(event, userID, bookingID)
}

func TestReserveSingleSeatScenario(t *testing.T) {
	f := newFixture(t)
	svc := f.service(f.stores(), ticket.NewIssuer())
	ctx := context.Background()
	e1 := f.event(t, model.EventApproved, 1)
	userA, userB := uuid.NewString(), uuid.NewString()

	res, err := svc.Reserve(ctx, userA, e1.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Booking.TicketID)
	assert.Equal(t, res.Ticket.ID, *res.Booking.TicketID)
	assert.Equal(t, e1.ID, res.Ticket.EventID)
	assert.Equal(t, userA, res.Ticket.UserID)
	assert.True(t, res.Ticket.ExpiresAt.Equal(e1.EventDate))
	assert.Regexp(t, `^TKT-[0-9A-F]{6}-[0-9A-F]{6}-\d+$`, res.Ticket.TicketCode)
	assert.Equal(t, 0, res.Event.AvailableSeats)

	assert.Equal(t, 0, f.seats(t, e1.ID))
	assert.Equal(t, 1, f.count(t, "bookings"))
	assert.Equal(t, 1, f.count(t, "tickets"))

	_, err = svc.Reserve(ctx, userB, e1.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, Conflict)
	assert.Equal(t, MsgSoldOut, AsError(err).Message)
	assert.Equal(t, 0, f.seats(t, e1.ID))

	pubs := f.pub.published()
	require.Len(t, pubs, 1)
	assert.Equal(t, res.Booking.ID, pubs[0].BookingID)
	assert.Equal(t, "E1", pubs[0].EventTitle)
}

func TestReserveTwiceIsAlreadyBooked(t *testing.T) {
	f := newFixture(t)
	svc := f.service(f.stores(), ticket.NewIssuer())
	ctx := context.Background()
	e1 := f.event(t, model.EventApproved, 5)
	userA := uuid.NewString()

	_, err := svc.Reserve(ctx, userA, e1.ID)
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, userA, e1.ID)
	assert.ErrorIs(t, err, Conflict)
	assert.Equal(t, MsgAlreadyBooked, AsError(err).Message)

	assert.Equal(t, 4, f.seats(t, e1.ID))
	assert.Equal(t, 1, f.count(t, "bookings"))
	assert.Equal(t, 1, f.count(t, "tickets"))
}

func TestReserveRejections(t *testing.T) {
	f := newFixture(t)
	svc := f.service(f.stores(), ticket.NewIssuer())
	ctx := context.Background()

	pending := f.event(t, model.EventPending, 3)
	rejected := f.event(t, model.EventRejected, 3)

	tests := []struct {
		name    string
		userID  string
		eventID string
		kind    Kind
	}{
		{"unknown event", uuid.NewString(), uuid.NewString(), NotFound},
		{"pending event", uuid.NewString(), pending.ID, InvalidState},
		{"rejected event", uuid.NewString(), rejected.ID, InvalidState},
		{"missing user", "", pending.ID, ValidationError},
		{"missing event", uuid.NewString(), "", ValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Reserve(ctx, tt.userID, tt.eventID)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	assert.Equal(t, 3, f.seats(t, pending.ID))
	assert.Equal(t, 3, f.seats(t, rejected.ID))
	assert.Equal(t, 0, f.count(t, "bookings"))
	assert.Empty(t, f.pub.published())
}

func TestReserveConcurrentOversubscription(t *testing.T) {
	const seats, callers = 3, 12

	f := newFixture(t)
	svc := f.service(f.stores(), ticket.NewIssuer())
	e := f.event(t, model.EventApproved, seats)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
		others    atomic.Int32
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(context.Background(), uuid.NewString(), e.ID)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, Conflict):
				conflicts.Add(1)
			default:
				others.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, seats, successes.Load())
	assert.EqualValues(t, callers-seats, conflicts.Load())
	assert.EqualValues(t, 0, others.Load())
	assert.Equal(t, 0, f.seats(t, e.ID))
	assert.Equal(t, seats, f.count(t, "bookings"))
	assert.Equal(t, seats, f.count(t, "tickets"))
}

func TestReserveConcurrentSameUser(t *testing.T) {
	f := newFixture(t)
	svc := f.service(f.stores(), ticket.NewIssuer())
	e := f.event(t, model.EventApproved, 10)
	user := uuid.NewString()

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Reserve(context.Background(), user, e.ID); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, successes.Load())
	assert.Equal(t, 9, f.seats(t, e.ID))
	assert.Equal(t, 1, f.count(t, "bookings"))
}

func TestReserveTicketFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	stores := f.stores()
	stores.Tickets = &failingTickets{TicketStore: f.tickets, err: errors.New("disk full"), fails: -1}
	svc := f.service(stores, ticket.NewIssuer())
	e := f.event(t, model.EventApproved, 2)

	_, err := svc.Reserve(context.Background(), uuid.NewString(), e.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, Internal)
	assert.Equal(t, MsgInternal, AsError(err).Message)

	assert.Equal(t, 2, f.seats(t, e.ID))
	assert.Equal(t, 0, f.count(t, "bookings"))
	assert.Equal(t, 0, f.count(t, "tickets"))
	assert.Empty(t, f.pub.published())
}

func TestReserveIssuerFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("qr encoder down")
	svc := f.service(f.stores(), issuerFunc(func(*model.Event, string, string) (*model.Ticket, error) {
		return nil, boom
	}))
	e := f.event(t, model.EventApproved, 2)

	_, err := svc.Reserve(context.Background(), uuid.NewString(), e.ID)
	assert.ErrorIs(t, err, Internal)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, f.seats(t, e.ID))
	assert.Equal(t, 0, f.count(t, "bookings"))
}

func TestReserveRetriesTicketCollision(t *testing.T) {
	f := newFixture(t)
	stores := f.stores()
	flaky := &failingTickets{TicketStore: f.tickets, err: repository.ErrDuplicateTicket, fails: 1}
	stores.Tickets = flaky

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	svc := f.service(stores, ticket.NewIssuer(), WithTracerProvider(tp))
	e := f.event(t, model.EventApproved, 2)

	res, err := svc.Reserve(context.Background(), uuid.NewString(), e.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Ticket.TicketCode)
	assert.EqualValues(t, 2, flaky.calls.Load())
	assert.Equal(t, 1, f.seats(t, e.ID))
	assert.Equal(t, 1, f.count(t, "bookings"))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := attribute.NewSet(spans[0].Attributes()...)
	attempts, ok := attrs.Value("reservation.attempts")
	require.True(t, ok)
	assert.EqualValues(t, 2, attempts.AsInt64())
	outcome, _ := attrs.Value("reservation.outcome")
	assert.Equal(t, "confirmed", outcome.AsString())
}

func TestReserveExhaustedRetriesIsTryAgain(t *testing.T) {
	f := newFixture(t)
	stores := f.stores()
	always := &failingTickets{TicketStore: f.tickets, err: repository.ErrDuplicateTicket, fails: -1}
	stores.Tickets = always
	svc := f.service(stores, ticket.NewIssuer())
	e := f.event(t, model.EventApproved, 2)

	_, err := svc.Reserve(context.Background(), uuid.NewString(), e.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, Conflict)
	assert.Equal(t, MsgTryAgain, AsError(err).Message)
	assert.EqualValues(t, 3, always.calls.Load())
	assert.Equal(t, 2, f.seats(t, e.ID))
	assert.Equal(t, 0, f.count(t, "bookings"))
}

func TestReserveTimeoutIsTryAgain(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, model.EventApproved, 1)
	cfg := config.Reservation{MaxAttempts: 3, Timeout: 200 * time.Millisecond, Backoff: time.Millisecond}
	svc := NewReservationService(f.db, f.stores(), ticket.NewIssuer(), f.pub, cfg, slogdiscard.NewDiscardLogger())

	// the pool has a single connection; an open transaction starves the unit
	blocker, err := f.db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = svc.Reserve(context.Background(), uuid.NewString(), e.ID)
	elapsed := time.Since(start)
	require.NoError(t, blocker.Rollback())

	require.Error(t, err)
	assert.ErrorIs(t, err, Conflict)
	assert.Equal(t, MsgTryAgain, AsError(err).Message)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, 1, f.seats(t, e.ID))
	assert.Equal(t, 0, f.count(t, "bookings"))
	assert.Empty(t, f.pub.published())
}

func TestReserveConstraintViolationIsValidationError(t *testing.T) {
	f := newFixture(t)
	stores := f.stores()
	stores.Tickets = &failingTickets{TicketStore: f.tickets, err: &mysql.MySQLError{Number: 3819, Message: "Check constraint violated"}, fails: -1}
	svc := f.service(stores, ticket.NewIssuer())
	e := f.event(t, model.EventApproved, 2)

	_, err := svc.Reserve(context.Background(), uuid.NewString(), e.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ValidationError)
	assert.Equal(t, MsgInvalidData, AsError(err).Message)
	assert.Equal(t, 2, f.seats(t, e.ID))
	assert.Equal(t, 0, f.count(t, "bookings"))
}

type countingCache struct {
	calls atomic.Int32
	err   error
}

func (c *countingCache) Invalidate(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestReserveInvalidatesListingCache(t *testing.T) {
	f := newFixture(t)
	cache := &countingCache{}
	svc := f.service(f.stores(), ticket.NewIssuer(), WithListingCache(cache))
	e := f.event(t, model.EventApproved, 1)

	_, err := svc.Reserve(context.Background(), uuid.NewString(), e.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, cache.calls.Load())

	// rejected reservations leave the cache alone
	_, err = svc.Reserve(context.Background(), uuid.NewString(), e.ID)
	assert.ErrorIs(t, err, Conflict)
	assert.EqualValues(t, 1, cache.calls.Load())

	cache.err = errors.New("redis down")
	other := f.event(t, model.EventApproved, 1)
	_, err = svc.Reserve(context.Background(), uuid.NewString(), other.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, cache.calls.Load())
}

func TestReserveIgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t)
	svc := f.service(f.stores(), ticket.NewIssuer())
	e := f.event(t, model.EventApproved, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Reserve(ctx, uuid.NewString(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, f.seats(t, e.ID))
}

func TestReservePublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")
	svc := f.service(f.stores(), ticket.NewIssuer())
	e := f.event(t, model.EventApproved, 1)

	_, err := svc.Reserve(context.Background(), uuid.NewString(), e.ID)
	require.NoError(t, err)
	assert.Len(t, f.pub.published(), 1)
	assert.Equal(t, 1, f.count(t, "bookings"))
}

func TestErrorKinds(t *testing.T) {
	err := newError(Conflict, MsgSoldOut, nil)
	assert.ErrorIs(t, err, Conflict)
	assert.NotErrorIs(t, err, NotFound)
	assert.Equal(t, "Conflict: no seats available", err.Error())

	wrapped := AsError(errors.New("boom"))
	assert.Equal(t, Internal, wrapped.Kind)
	assert.Same(t, err, AsError(err))
}
