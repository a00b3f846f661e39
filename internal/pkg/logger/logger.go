package logger

import (
	"log/slog"
	"os"
)

const (
	envDevelopment = "development"
	envLocal       = "local"
)

// New returns the process logger: human-readable text in development, JSON elsewhere.
func New(env string) *slog.Logger {
	var h slog.Handler
	switch env {
	case envLocal, envDevelopment:
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.New(h)
}
