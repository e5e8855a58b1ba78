package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"disorder.dev/shandler"
)

// DefaultSlogLogger represents the default logger to use.
// It writes JSON records to stdout at debug level.
var DefaultSlogLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

// DiscardSlogLogger drops everything; used by tests that exercise noisy paths.
var DiscardSlogLogger = slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

// New creates a JSON logger writing to w at the given level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetDefault installs l as the process-wide default used by the slog
// package-level helpers throughout the client core.
func SetDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

// Trace logs below debug level. Per-message dispatch in the push layer logs
// here so that the default level keeps it quiet.
func Trace(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.TODO(), shandler.LevelTrace, msg, args...)
}
