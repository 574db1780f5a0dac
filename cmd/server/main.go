package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/lib/logger"
	"github.com/iliyamo/event-booking/internal/lib/logger/sl"
	"github.com/iliyamo/event-booking/internal/middleware"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/router"
	"github.com/iliyamo/event-booking/internal/service"
	"github.com/iliyamo/event-booking/internal/telemetry"
	"github.com/iliyamo/event-booking/internal/ticket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", sl.Err(err))
		os.Exit(1)
	}

	log := logger.New(cfg.Env, os.Stdout)
	log.Info("starting event booking", slog.String("env", cfg.Env), slog.String("db_driver", cfg.Database.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, cfg.Env)
	if err != nil {
		log.Error("failed to init tracing", sl.Err(err))
		os.Exit(1)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Error("failed to open database", sl.Err(err))
		os.Exit(1)
	}
	if err := database.Migrate(ctx, db); err != nil {
		log.Error("failed to migrate database", sl.Err(err))
		os.Exit(1)
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable, response cache and rate limiting disabled", slog.String("addr", cfg.Redis.Address()))
	}

	events := repository.NewEventRepo(db)
	bookings := repository.NewBookingRepo(db.DB)
	tickets := repository.NewTicketRepo(db.DB)

	var publisher service.Publisher = queue.NoopPublisher{}
	if cfg.RabbitMQ.Enabled {
		publisher = queue.NewPublisher(cfg.RabbitMQ.URL, log)
		consumer := queue.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.LogDir, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("booking consumer stopped", sl.Err(err))
			}
		}()
	}

	reserver := service.NewReservationService(db.DB,
		service.Stores{Events: events, Bookings: bookings, Tickets: tickets},
		ticket.NewIssuer(), publisher, cfg.Reservation, log,
		service.WithListingCache(middleware.NewRouteCache(cfg.Cache, rdb, router.EventsPath)))
	queries := service.NewQueryService(bookings, tickets, events, log)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	router.RegisterMiddleware(e, cfg, log)

	router.RegisterRoutes(e, db.DB)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(db.DB), repository.NewTokenRepo(db.DB), log), cfg.JWTSecret)
	router.RegisterBookings(e, handler.NewBookingHandler(reserver, queries, log), cfg, rdb, log)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("application stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server", sl.Err(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("failed to flush traces", sl.Err(err))
	}
	if err := db.Close(); err != nil {
		log.Error("failed to close database", sl.Err(err))
	}
	log.Info("application stopped")
}
