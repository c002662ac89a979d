package support

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Now returns clock() in UTC, falling back to the wall clock.
func Now(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}

func NewID(gen func() string) string {
	if gen == nil {
		return uuid.NewString()
	}
	return gen()
}

// Logger never returns nil.
func Logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
