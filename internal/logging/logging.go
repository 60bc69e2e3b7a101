// Package logging wires the engine's zerolog logger and carries a
// request id through context so every log line in a single operation's
// call chain can be correlated.
package logging

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ctxKey string

const requestIDKey ctxKey = "requestId"

// Init configures the global zerolog logger: UTC unix timestamps written
// to stderr, matching the engine's stateless-worker deployment model
// (no local log file to rotate).
func Init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// WithRequestID returns a context carrying the logger bound to id, and
// the id itself recoverable via RequestIDFromContext.
func WithRequestID(ctx context.Context, id string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, id)
	logger := log.Logger.With().Str("request_id", id).Logger()
	return logger.WithContext(ctx)
}

// RequestIDFromContext returns the request id stashed by WithRequestID,
// or "" if none was set.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, ok := ctx.Value(requestIDKey).(string)
	if !ok {
		return ""
	}
	return id
}

// From returns the zerolog.Logger bound to ctx, falling back to the
// global logger.
func From(ctx context.Context) *zerolog.Logger {
	return log.Ctx(ctx)
}
