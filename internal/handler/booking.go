package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/service"
)

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=Reserver
type Reserver interface {
	Reserve(ctx context.Context, userID, eventID string) (*service.Reservation, error)
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=BookingQuerier
type BookingQuerier interface {
	ListBookings(ctx context.Context, userID string) ([]model.BookingDetail, error)
	GetTicket(ctx context.Context, userID, code string) (*model.Ticket, error)
	ListApprovedEvents(ctx context.Context) ([]model.Event, error)
	GetEvent(ctx context.Context, id string) (*model.Event, error)
}

// BookingHandler serves reservation, booking listing and ticket lookup.
type BookingHandler struct {
	reserver Reserver
	queries  BookingQuerier
	log      *slog.Logger
}

func NewBookingHandler(r Reserver, q BookingQuerier, log *slog.Logger) *BookingHandler {
	return &BookingHandler{reserver: r, queries: q, log: log.With(slog.String("component", "handler/booking"))}
}

type eventParam struct {
	ID string `param:"id" validate:"required,uuid"`
}

type ticketParam struct {
	Code string `param:"code" validate:"required,startswith=TKT-,max=64"`
}

type reserveResponse struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	TicketID string         `json:"ticketId"`
	Booking  *model.Booking `json:"booking"`
	Ticket   *model.Ticket  `json:"ticket"`
}

type dataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// Reserve handles POST /v1/events/:id/reserve.
func (h *BookingHandler) Reserve(c echo.Context) error {
	var p eventParam
	if err := (&echo.DefaultBinder{}).BindPathParams(c, &p); err != nil {
		return invalid(c, err)
	}
	if err := c.Validate(&p); err != nil {
		return invalid(c, err)
	}

	res, err := h.reserver.Reserve(c.Request().Context(), getUserID(c), p.ID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, reserveResponse{
		Success:  true,
		Message:  "Booking confirmed",
		TicketID: res.Ticket.TicketCode,
		Booking:  res.Booking,
		Ticket:   res.Ticket,
	})
}

// MyBookings handles GET /v1/my-bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	list, err := h.queries.ListBookings(c.Request().Context(), getUserID(c))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dataResponse{Success: true, Data: list})
}

// GetTicket handles GET /v1/tickets/:code.
func (h *BookingHandler) GetTicket(c echo.Context) error {
	var p ticketParam
	if err := (&echo.DefaultBinder{}).BindPathParams(c, &p); err != nil {
		return invalid(c, err)
	}
	if err := c.Validate(&p); err != nil {
		return invalid(c, err)
	}
	t, err := h.queries.GetTicket(c.Request().Context(), getUserID(c), p.Code)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dataResponse{Success: true, Data: t})
}

// ListEvents handles GET /v1/events.
func (h *BookingHandler) ListEvents(c echo.Context) error {
	events, err := h.queries.ListApprovedEvents(c.Request().Context())
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dataResponse{Success: true, Data: events})
}

// GetEvent handles GET /v1/events/:id.
func (h *BookingHandler) GetEvent(c echo.Context) error {
	var p eventParam
	if err := (&echo.DefaultBinder{}).BindPathParams(c, &p); err != nil {
		return invalid(c, err)
	}
	if err := c.Validate(&p); err != nil {
		return invalid(c, err)
	}
	e, err := h.queries.GetEvent(c.Request().Context(), p.ID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dataResponse{Success: true, Data: e})
}
