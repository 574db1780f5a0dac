package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/lib/logger/sl"
	"github.com/iliyamo/event-booking/internal/middleware"
	"github.com/iliyamo/event-booking/internal/service"
)

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator { return &Validator{v: validator.New()} }

func (cv *Validator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// errorBody is the failure envelope shared by every endpoint.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps a service error kind onto an HTTP status.
func statusFor(kind service.Kind) int {
	switch kind {
	case service.NotFound:
		return http.StatusNotFound
	case service.InvalidState, service.ValidationError:
		return http.StatusBadRequest
	case service.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as the error envelope.  Internal causes are logged and
// replaced by a generic message.
func fail(c echo.Context, log *slog.Logger, err error) error {
	se := service.AsError(err)
	if se.Kind == service.Internal {
		log.Error("request failed", slog.String("path", c.Path()), slog.String("user_id", getUserID(c)), sl.Err(err))
		return c.JSON(http.StatusInternalServerError, errorBody{Error: string(service.Internal), Message: service.MsgInternal})
	}
	return c.JSON(statusFor(se.Kind), errorBody{Error: string(se.Kind), Message: se.Message})
}

// invalid writes a ValidationError envelope, listing failed fields when err
// comes from the validator.
func invalid(c echo.Context, err error) error {
	msg := "invalid request"
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fmt.Sprintf("%s is invalid (%s)", strings.ToLower(fe.Field()), fe.Tag()))
		}
		msg = strings.Join(parts, "; ")
	}
	return c.JSON(http.StatusBadRequest, errorBody{Error: string(service.ValidationError), Message: msg})
}

// getUserID returns the authenticated user id set by JWTAuth.
func getUserID(c echo.Context) string {
	return middleware.UserID(c)
}
