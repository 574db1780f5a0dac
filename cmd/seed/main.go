// Command seed inserts demo events so reservations can be tried without an
// organizer workflow.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/lib/logger"
	"github.com/iliyamo/event-booking/internal/lib/logger/sl"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
)

type demoEvent struct {
	title    string
	location string
	inDays   int
	status   string
	seats    int
}

var demo = []demoEvent{
	{"Go Meetup: Concurrency Patterns", "Tech Hub, Room 1", 14, model.EventApproved, 50},
	{"Jazz Night", "Blue Note Club", 21, model.EventApproved, 120},
	{"Sold Out Premiere", "Grand Cinema", 7, model.EventApproved, 0},
	{"Last Seat Standing", "Small Theatre", 10, model.EventApproved, 1},
	{"Startup Pitch Day", "Innovation Center", 30, model.EventPending, 80},
	{"Cancelled Gala", "Old Town Hall", 5, model.EventRejected, 200},
}

func main() {
	var dryRun bool
	flag.BoolVar(&dryRun, "dry-run", false, "print the events without inserting them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env, os.Stdout)

	if dryRun {
		for _, d := range demo {
			fmt.Printf("%-34s %-20s %-9s seats=%d\n", d.title, d.location, d.status, d.seats)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Error("failed to open database", sl.Err(err))
		os.Exit(1)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Error("failed to migrate database", sl.Err(err))
		os.Exit(1)
	}

	events := repository.NewEventRepo(db)
	now := time.Now().UTC().Truncate(time.Hour)
	for _, d := range demo {
		e := &model.Event{
			ID:             uuid.NewString(),
			Title:          d.title,
			Location:       d.location,
			EventDate:      now.AddDate(0, 0, d.inDays),
			Status:         d.status,
			AvailableSeats: d.seats,
		}
		if err := events.Create(ctx, e); err != nil {
			log.Error("failed to insert event", slog.String("title", d.title), sl.Err(err))
			os.Exit(1)
		}
		log.Info("event seeded", slog.String("id", e.ID), slog.String("title", e.Title), slog.String("status", e.Status))
	}
}
