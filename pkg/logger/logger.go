// Package logger configures the process-wide slog logger and carries
// request-scoped attributes (request ID, owner ID) through contexts.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	ownerIDKey
)

func Setup(level string, format string) {
	SetupWriter(os.Stdout, level, format)
}

// SetupWriter is Setup with an explicit destination; the CLI logs to stderr
// so stdout stays machine-readable.
func SetupWriter(w io.Writer, level string, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var base slog.Handler
	if format == "json" {
		base = slog.NewJSONHandler(w, opts)
	} else {
		base = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(contextHandler{base}))
}

// contextHandler copies the request and owner IDs stored in a record's
// context onto the record, so slog.InfoContext(ctx, ...) carries them
// without going through FromContext.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if id, ok := ctx.Value(requestIDKey).(string); ok {
			r.AddAttrs(slog.String("request_id", id))
		}
		if owner, ok := ctx.Value(ownerIDKey).(string); ok {
			r.AddAttrs(slog.String("owner_id", owner))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDKey, ownerID)
}

// FromContext returns the default logger with the context's IDs bound as
// attributes, for code that hands a logger down instead of a context.
func FromContext(ctx context.Context) *slog.Logger {
	var attrs []any
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		attrs = append(attrs, "request_id", id)
	}
	if owner, ok := ctx.Value(ownerIDKey).(string); ok {
		attrs = append(attrs, "owner_id", owner)
	}
	return slog.Default().With(attrs...)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// parseLevel accepts slog's level names in any case, with an optional
// offset such as "debug-2". Anything else logs at info.
func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
