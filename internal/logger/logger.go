// Package logger provides structured logging setup using slog.
package logger

import (
	"context"
	"log/slog"
	"os"
)

// jobKeyKey is the context key for the active job key.
type jobKeyKey struct{}

// New creates a structured text logger writing to stderr, so log lines
// never mix with the command output on stdout. Set CODEOCEAN_DEBUG for
// debug-level logging.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("CODEOCEAN_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// WithJobKey returns a new context carrying the given job key.
func WithJobKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, jobKeyKey{}, key)
}

// JobKeyFromContext extracts the job key from the context.
func JobKeyFromContext(ctx context.Context) string {
	if v := ctx.Value(jobKeyKey{}); v != nil {
		return v.(string)
	}
	return ""
}

// FromContext returns a logger with context fields (job key, etc.) attached.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if key := JobKeyFromContext(ctx); key != "" {
		return base.With("job_key", key)
	}
	return base
}
