// Package service holds the booking core: the reservation coordinator that
// turns a request into a booking plus ticket atomically, and the read-only
// booking queries.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/lib/logger/sl"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
)

const (
	tracerName     = "github.com/iliyamo/event-booking/internal/service"
	publishTimeout = 5 * time.Second
)

// TxBeginner starts database transactions.  *sql.DB satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// EventStore is the event side of the reservation unit.
type EventStore interface {
	GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.Event, error)
	DecrementSeatTx(ctx context.Context, tx *sql.Tx, id string) (bool, error)
}

// BookingStore is the booking side of the reservation unit.
type BookingStore interface {
	ExistsTx(ctx context.Context, tx *sql.Tx, userID, eventID string) (bool, error)
	CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error
	LinkTicketTx(ctx context.Context, tx *sql.Tx, bookingID, ticketID string) error
}

// TicketStore persists issued tickets.
type TicketStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error
}

// Issuer builds the ticket for a booking.
type Issuer interface {
	Issue(event *model.Event, userID, bookingID string) (*model.Ticket, error)
}

// Publisher announces committed bookings.
type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// ListingCache holds rendered event listings that go stale when a seat is
// taken.
type ListingCache interface {
	Invalidate(ctx context.Context) error
}

// Stores groups the repositories the coordinator writes through.
type Stores struct {
	Events   EventStore
	Bookings BookingStore
	Tickets  TicketStore
}

// Reservation is the outcome of a successful Reserve.
type Reservation struct {
	Event   *model.Event
	Booking *model.Booking
	Ticket  *model.Ticket
}

// ReservationService coordinates seat reservations.  Every reservation runs
// as one transaction: lock the event row, check for an existing booking,
// conditionally decrement the seat count, insert the booking, issue and
// insert the ticket, link it, commit.  Any failure rolls everything back.
type ReservationService struct {
	db        TxBeginner
	stores    Stores
	issuer    Issuer
	publisher Publisher
	listings  ListingCache
	cfg       config.Reservation
	log       *slog.Logger
	tracer    trace.Tracer
	newID     func() string
}

// ReservationOption customises a ReservationService.
type ReservationOption func(*ReservationService)

// WithTracerProvider records reservation spans on tp instead of the global
// provider.
func WithTracerProvider(tp trace.TracerProvider) ReservationOption {
	return func(s *ReservationService) { s.tracer = tp.Tracer(tracerName) }
}

// WithIDGenerator replaces uuid.NewString for booking ids.
func WithIDGenerator(fn func() string) ReservationOption {
	return func(s *ReservationService) { s.newID = fn }
}

// WithListingCache invalidates c after every confirmed reservation.
func WithListingCache(c ListingCache) ReservationOption {
	return func(s *ReservationService) { s.listings = c }
}

// NewReservationService wires the coordinator.  A nil publisher disables
// notifications.
func NewReservationService(
	db TxBeginner,
	stores Stores,
	issuer Issuer,
	publisher Publisher,
	cfg config.Reservation,
	log *slog.Logger,
	opts ...ReservationOption,
) *ReservationService {
	if publisher == nil {
		publisher = queue.NoopPublisher{}
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	s := &ReservationService{
		db:        db,
		stores:    stores,
		issuer:    issuer,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
		tracer:    otel.Tracer(tracerName),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reserve books one seat of eventID for userID and issues its ticket.
//
// Failures, checked in this order: NotFound (no such event), InvalidState
// (event not approved), Conflict "already booked", Conflict "sold out".
// Transient isolation conflicts are retried up to the configured number of
// attempts; running out of attempts or time is a Conflict "try again".
//
// The unit is detached from the caller's cancellation and bounded by the
// configured timeout, so it either commits or rolls back completely.
func (s *ReservationService) Reserve(ctx context.Context, userID, eventID string) (*Reservation, error) {
	const op = "service.ReservationService.Reserve"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", userID),
		slog.String("event_id", eventID),
	)
	if userID == "" || eventID == "" {
		return nil, newError(ValidationError, "user id and event id are required", nil)
	}

	ctx, span := s.tracer.Start(ctx, "reservation.reserve", trace.WithAttributes(
		attribute.String("booking.user_id", userID),
		attribute.String("booking.event_id", eventID),
	))
	defer span.End()

	unitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()

	var (
		res     *Reservation
		err     error
		attempt int
	)
	for attempt = 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		res, err = s.reserveOnce(unitCtx, log, userID, eventID)
		if err == nil || !isTransient(err) {
			break
		}
		log.Warn("transient conflict", slog.Int("attempt", attempt), slog.String("outcome", "retry"), sl.Err(err))
		if attempt == s.cfg.MaxAttempts || !sleep(unitCtx, s.cfg.Backoff*time.Duration(attempt)) {
			break
		}
	}
	if attempt > s.cfg.MaxAttempts {
		attempt = s.cfg.MaxAttempts
	}
	span.SetAttributes(attribute.Int("reservation.attempts", attempt))

	if err != nil {
		serr := s.classify(err)
		span.SetAttributes(attribute.String("reservation.outcome", string(serr.Kind)))
		if serr.Kind == Internal {
			span.RecordError(err)
			span.SetStatus(codes.Error, "reservation failed")
			log.Error("reservation failed", slog.Int("attempt", attempt), slog.String("outcome", string(serr.Kind)), sl.Err(err))
		} else {
			log.Info("reservation rejected", slog.Int("attempt", attempt), slog.String("outcome", string(serr.Kind)), slog.String("reason", serr.Message))
		}
		return nil, serr
	}

	span.SetAttributes(
		attribute.String("reservation.outcome", "confirmed"),
		attribute.String("booking.id", res.Booking.ID),
	)
	log.Info("reservation confirmed",
		slog.Int("attempt", attempt),
		slog.String("outcome", "confirmed"),
		slog.String("booking_id", res.Booking.ID),
		slog.String("ticket_code", res.Ticket.TicketCode),
	)

	s.invalidateListings(ctx, log)
	s.publish(ctx, log, res)
	return res, nil
}

// reserveOnce runs a single attempt of the unit.  Business rejections come
// back as *Error; everything else is a raw error classified by the caller.
func (s *ReservationService) reserveOnce(ctx context.Context, log *slog.Logger, userID, eventID string) (*Reservation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error("rollback failed", sl.Err(rbErr))
		}
	}()

	event, err := s.stores.Events.GetByIDForUpdateTx(ctx, tx, eventID)
	if errors.Is(err, repository.ErrEventNotFound) {
		return nil, newError(NotFound, MsgEventNotFound, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if event.Status != model.EventApproved {
		return nil, newError(InvalidState, MsgNotApproved, nil)
	}

	exists, err := s.stores.Bookings.ExistsTx(ctx, tx, userID, eventID)
	if err != nil {
		return nil, fmt.Errorf("check booking: %w", err)
	}
	if exists {
		return nil, newError(Conflict, MsgAlreadyBooked, nil)
	}
	if event.AvailableSeats <= 0 {
		return nil, newError(Conflict, MsgSoldOut, nil)
	}

	ok, err := s.stores.Events.DecrementSeatTx(ctx, tx, eventID)
	if err != nil {
		return nil, fmt.Errorf("decrement seat: %w", err)
	}
	if !ok {
		return nil, newError(Conflict, MsgSoldOut, nil)
	}

	booking := &model.Booking{
		ID:        s.newID(),
		UserID:    userID,
		EventID:   eventID,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.stores.Bookings.CreateTx(ctx, tx, booking); err != nil {
		if errors.Is(err, repository.ErrDuplicateBooking) {
			return nil, newError(Conflict, MsgAlreadyBooked, nil)
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	ticket, err := s.issuer.Issue(event, userID, booking.ID)
	if err != nil {
		return nil, newError(Internal, MsgInternal, fmt.Errorf("issue ticket: %w", err))
	}
	ticket.CreatedAt = booking.CreatedAt
	if err := s.stores.Tickets.CreateTx(ctx, tx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	if err := s.stores.Bookings.LinkTicketTx(ctx, tx, booking.ID, ticket.ID); err != nil {
		return nil, fmt.Errorf("link ticket: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true

	booking.TicketID = &ticket.ID
	event.AvailableSeats--
	return &Reservation{Event: event, Booking: booking, Ticket: ticket}, nil
}

// classify maps an attempt error onto the service taxonomy.
func (s *ReservationService) classify(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	if isTransient(err) || errors.Is(err, context.DeadlineExceeded) {
		return newError(Conflict, MsgTryAgain, err)
	}
	if database.IsConstraintViolation(err) {
		return newError(ValidationError, MsgInvalidData, err)
	}
	return newError(Internal, MsgInternal, err)
}

// invalidateListings drops cached listings so the new seat count shows up.
// A stale cache expires on its own, so failures are only logged.
func (s *ReservationService) invalidateListings(ctx context.Context, log *slog.Logger) {
	if s.listings == nil {
		return
	}
	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.listings.Invalidate(cacheCtx); err != nil {
		log.Warn("event listing cache not invalidated", sl.Err(err))
	}
}

// publish announces the booking.  The reservation is already committed, so
// failures are only logged.
func (s *ReservationService) publish(ctx context.Context, log *slog.Logger, res *Reservation) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	ev := queue.BookingConfirmedEvent{
		BookingID:   res.Booking.ID,
		TicketID:    res.Ticket.ID,
		TicketCode:  res.Ticket.TicketCode,
		UserID:      res.Booking.UserID,
		EventID:     res.Event.ID,
		EventTitle:  res.Event.Title,
		Location:    res.Event.Location,
		EventDate:   res.Event.EventDate.UTC().Format(time.RFC3339),
		ConfirmedAt: res.Booking.CreatedAt.UTC().Format(time.RFC3339),
	}
	if err := s.publisher.PublishBookingConfirmed(pubCtx, ev); err != nil {
		log.Warn("booking notification not published", sl.Err(err))
	}
}

func isTransient(err error) bool {
	return errors.Is(err, repository.ErrDuplicateTicket) || database.IsRetryable(err)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
