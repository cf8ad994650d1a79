// Package logger builds the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a logger for env: text at DEBUG for development, JSON at
// INFO otherwise. The logger is also installed as slog's default.
func New(env string) *slog.Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(env string, w io.Writer) *slog.Logger {
	var h slog.Handler
	switch env {
	case "development", "dev":
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	l := slog.New(h).With("service", "gymdesk")
	slog.SetDefault(l)
	return l
}
