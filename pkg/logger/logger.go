// Package logger configures log/slog for the CLI and the prediction API and
// carries per-request attributes through a context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type attrsKey struct{}

// Setup installs the default handler on stderr, keeping stdout free for
// command output.
func Setup(level, format string) {
	SetupWriter(os.Stderr, level, format)
}

// SetupWriter installs a JSON handler for format "json" and a text handler
// otherwise. Unknown levels fall back to info.
func SetupWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// ParseLevel accepts slog level names in any case, with offsets such as
// "debug+2", and "warning" as an alias of "warn".
func ParseLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// WithAttrs returns a context whose FromContext logger carries args in
// addition to those already attached.
func WithAttrs(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(attrsKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, attrsKey{}, merged)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return WithAttrs(ctx, "request_id", requestID)
}

// FromContext returns the default logger with the attributes of ctx.
func FromContext(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if args, ok := ctx.Value(attrsKey{}).([]any); ok && len(args) > 0 {
		l = l.With(args...)
	}
	return l
}
