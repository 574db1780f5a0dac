package router // package router defines how HTTP routes are registered for the API

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/middleware"
	"github.com/iliyamo/event-booking/internal/model"
)

// EventsPath is the cached public listing.  Reservations invalidate it
// through middleware.RouteCache.
const EventsPath = "/v1/events"

// RegisterMiddleware installs the global middleware chain.  CORS runs
// before the logger so rejected preflights are still logged.
func RegisterMiddleware(e *echo.Echo, cfg config.Config, log *slog.Logger) {
	e.Use(echomw.RequestID())
	e.Use(middleware.NewCORS(cfg.CORS))
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
}

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers token issuing under /v1/auth and the protected
// identity endpoint under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// logout works with either a refresh token or a bearer, so no JWT here
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterBookings registers event listing, reservation and the caller's
// booking and ticket reads.  rdb may be nil, which disables the response
// cache and the rate limiter.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, cfg config.Config, rdb *redis.Client, log *slog.Logger) {
	e.GET(EventsPath, h.ListEvents, middleware.NewRedisCache(cfg.Cache, rdb))
	e.GET(EventsPath+"/:id", h.GetEvent)

	auth := e.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	auth.POST("/events/:id/reserve", h.Reserve,
		middleware.RequireRole(model.RoleUser),
		middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
	)
	auth.GET("/my-bookings", h.MyBookings)
	auth.GET("/tickets/:code", h.GetTicket)
}
