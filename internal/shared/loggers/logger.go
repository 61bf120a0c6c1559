package loggers

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger aliases zerolog.Logger so the rest of the service never imports
// zerolog directly.
type Logger = zerolog.Logger

// New builds the process logger: JSON to stdout, UTC timestamps, caller
// annotation. The level string follows zerolog's names (debug, info, ...).
func New(level string) (Logger, error) {
	zerologLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	logger := zerolog.New(os.Stdout).
		Level(zerologLevel).
		With().
		Timestamp().
		Caller().
		Logger()

	return logger, nil
}

// Ctx extracts the logger carried in ctx, or a no-op logger when none is.
// Declared as a var so tests can substitute it.
var Ctx = func(ctx context.Context) *Logger {
	return zerolog.Ctx(ctx)
}
