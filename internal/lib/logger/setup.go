// Package logger builds the application's slog.Logger for an environment.
package logger

import (
	"io"
	"log/slog"

	"github.com/iliyamo/event-booking/internal/lib/logger/handlers/slogpretty"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// New returns a colourised debug logger for local runs, a JSON debug logger
// for dev and a JSON info logger otherwise.
func New(env string, out io.Writer) *slog.Logger {
	switch env {
	case EnvLocal:
		opts := slogpretty.PrettyHandlerOptions{
			SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug},
		}
		return slog.New(opts.NewPrettyHandler(out))
	case EnvDev:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}
