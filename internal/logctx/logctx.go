// Package logctx carries a zerolog logger through context.Context.
//
// Split runs fan out into per-strategy and per-chunk scopes; instead of a
// process-wide logger, the CLI builds one configured logger and attaches it to
// the context, and components derive enriched children for their scope:
//
//	ctx := logctx.WithLogger(ctx, logger)
//	...
//	ctx = logctx.WithStr(ctx, "strategy", "key")
//	log := logctx.FromContext(ctx)
package logctx

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// loggerKey is the private context key type; a private type prevents
// collisions with other packages.
type loggerKey struct{}

// WithLogger returns a new context with the given logger attached.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext extracts the logger from the context. If the context is nil or
// carries no logger, a JSON-to-stderr logger is returned so callers never
// need a nil check.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return fallbackLogger()
	}
	if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return logger
	}
	return fallbackLogger()
}

func fallbackLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// WithStr returns a new context whose logger has the string field added.
func WithStr(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, logger)
}

// WithInt returns a new context whose logger has the int field added.
func WithInt(ctx context.Context, key string, value int) context.Context {
	logger := FromContext(ctx).With().Int(key, value).Logger()
	return WithLogger(ctx, logger)
}

// New builds the root logger for a run. Debug lowers the level from Info to
// Debug; pretty switches the JSON stream for a console writer. Verbosity is
// plain configuration here, not process state: callers pass the result down
// via WithLogger.
func New(debug, pretty bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	var out zerolog.LevelWriter
	if pretty {
		out = zerolog.LevelWriterAdapter{Writer: zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}}
	} else {
		out = zerolog.LevelWriterAdapter{Writer: os.Stderr}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
