package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds a JSON slog logger; the level string comes straight
// from config and anything unrecognized falls back to info.
func NewLogger(level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFromString(level)}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func levelFromString(level string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
