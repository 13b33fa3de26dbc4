// Package logging builds the zerolog logger used across the importer and
// carries it through context.Context.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type contextKey int

const loggerKey contextKey = iota

var defaultLogger = New(os.Stderr, "info", "console")

// New creates a logger writing to w. format "json" disables the console writer.
func New(w io.Writer, level, format string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if strings.ToLower(strings.TrimSpace(format)) != "json" {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func Default() *zerolog.Logger {
	return &defaultLogger
}

func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
}

func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// Ctx returns the logger stored in ctx, or the default logger.
func Ctx(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	return Default()
}

// WithFields returns a context whose logger carries the given string fields.
func WithFields(ctx context.Context, fields map[string]string) context.Context {
	logCtx := Ctx(ctx).With()
	for k, v := range fields {
		logCtx = logCtx.Str(k, v)
	}
	logger := logCtx.Logger()
	return WithLogger(ctx, &logger)
}
