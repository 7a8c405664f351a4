package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// NewLogger initialises an slog.Logger with the provided level string.
func NewLogger(levelStr string) *slog.Logger {
	level := parseLevel(levelStr)
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

func parseLevel(levelStr string) slog.Leveler {
	switch strings.ToLower(levelStr) {
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

type requestIDKey struct{}

// WithRequestID generates a correlation id for one webhook delivery and
// returns a context carrying it plus a logger annotated with it.
func WithRequestID(ctx context.Context, logger *slog.Logger) (context.Context, *slog.Logger) {
	id := uuid.NewString()
	return context.WithValue(ctx, requestIDKey{}, id), logger.With("request_id", id)
}

// RequestID returns the correlation id stored in ctx, or empty.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
