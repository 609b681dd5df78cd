// Package logging defines a minimal structured-logging interface used across
// the project together with slog- and zap-backed implementations.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.uber.org/zap"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "starting server", "addr", addr, "mode", mode)
type Logger interface {
	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

type fieldsKey struct{}

// ContextWith returns a copy of ctx carrying key-value pairs that loggers add
// to every entry written with that context, such as a request id.
func ContextWith(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(fieldsKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

func contextFields(ctx context.Context, args []any) []any {
	if ctx == nil {
		return args
	}
	extra, _ := ctx.Value(fieldsKey{}).([]any)
	if len(extra) == 0 {
		return args
	}
	out := make([]any, 0, len(extra)+len(args))
	out = append(out, extra...)
	return append(out, args...)
}

const (
	BackendSlog = "slog"
	BackendZap  = "zap"
)

// New builds a JSON logger writing to stdout for the named backend. The
// returned func flushes buffered entries and should be deferred by the caller.
func New(backend string) (Logger, func(), error) {
	switch backend {
	case "", BackendSlog:
		l := slog.New(slog.NewJSONHandler(os.Stdout, nil))
		return NewSlogLogger(l), func() {}, nil
	case BackendZap:
		z, err := zap.NewProduction()
		if err != nil {
			return nil, nil, fmt.Errorf("init zap: %w", err)
		}
		return NewZapLogger(z), func() { _ = z.Sync() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown log backend %q", backend)
	}
}
