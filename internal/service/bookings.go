package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/iliyamo/event-booking/internal/lib/logger/sl"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
)

// BookingLister reads a user's bookings with event and ticket detail.
type BookingLister interface {
	ListByUser(ctx context.Context, userID string) ([]model.BookingDetail, error)
}

// TicketFinder looks up a user's own ticket.
type TicketFinder interface {
	GetByCodeForUser(ctx context.Context, userID, code string) (*model.Ticket, error)
}

// EventReader reads events for the public listing and detail pages.
type EventReader interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
	ListByStatus(ctx context.Context, status string) ([]model.Event, error)
}

// QueryService is the read side.  It never writes.
type QueryService struct {
	bookings BookingLister
	tickets  TicketFinder
	events   EventReader
	log      *slog.Logger
}

func NewQueryService(bookings BookingLister, tickets TicketFinder, events EventReader, log *slog.Logger) *QueryService {
	return &QueryService{bookings: bookings, tickets: tickets, events: events, log: log}
}

// ListBookings returns the user's bookings in the order they were made.
func (s *QueryService) ListBookings(ctx context.Context, userID string) ([]model.BookingDetail, error) {
	const op = "service.QueryService.ListBookings"

	if userID == "" {
		return nil, newError(ValidationError, "user id is required", nil)
	}
	list, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		s.log.Error("list bookings failed", slog.String("op", op), slog.String("user_id", userID), sl.Err(err))
		return nil, newError(Internal, MsgInternal, err)
	}
	return list, nil
}

// GetTicket returns the caller's ticket by code.  Tickets of other users
// are reported as NotFound.
func (s *QueryService) GetTicket(ctx context.Context, userID, code string) (*model.Ticket, error) {
	const op = "service.QueryService.GetTicket"

	if userID == "" || code == "" {
		return nil, newError(ValidationError, "user id and ticket code are required", nil)
	}
	t, err := s.tickets.GetByCodeForUser(ctx, userID, code)
	if errors.Is(err, repository.ErrTicketNotFound) {
		return nil, newError(NotFound, MsgTicketNotFound, nil)
	}
	if err != nil {
		s.log.Error("get ticket failed", slog.String("op", op), slog.String("user_id", userID), sl.Err(err))
		return nil, newError(Internal, MsgInternal, err)
	}
	return t, nil
}

// ListApprovedEvents returns the events open for reservation.
func (s *QueryService) ListApprovedEvents(ctx context.Context) ([]model.Event, error) {
	const op = "service.QueryService.ListApprovedEvents"

	events, err := s.events.ListByStatus(ctx, model.EventApproved)
	if err != nil {
		s.log.Error("list events failed", slog.String("op", op), sl.Err(err))
		return nil, newError(Internal, MsgInternal, err)
	}
	return events, nil
}

// GetEvent returns an approved event.  Pending and rejected events are not
// public and are reported as NotFound.
func (s *QueryService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	const op = "service.QueryService.GetEvent"

	e, err := s.events.GetByID(ctx, id)
	if errors.Is(err, repository.ErrEventNotFound) {
		return nil, newError(NotFound, MsgEventNotFound, nil)
	}
	if err != nil {
		s.log.Error("get event failed", slog.String("op", op), slog.String("event_id", id), sl.Err(err))
		return nil, newError(Internal, MsgInternal, err)
	}
	if e.Status != model.EventApproved {
		return nil, newError(NotFound, MsgEventNotFound, nil)
	}
	return e, nil
}
