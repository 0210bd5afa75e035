package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Logger is the logging surface the loader and the document wrappers write
// to. Arguments are slog-style key/value pairs or slog.Attr values.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
}

// New adapts logger. Nil binds to slog.Default().
func New(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return slogAdapter{l: logger}
}

// Discard returns a Logger that drops everything.
func Discard() Logger {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Debug(ctx context.Context, msg string, args ...any) {
	a.l.Log(ctx, slog.LevelDebug, msg, args...)
}

func (a slogAdapter) Info(ctx context.Context, msg string, args ...any) {
	a.l.Log(ctx, slog.LevelInfo, msg, args...)
}

func (a slogAdapter) Warn(ctx context.Context, msg string, args ...any) {
	a.l.Log(ctx, slog.LevelWarn, msg, args...)
}

func (a slogAdapter) Error(ctx context.Context, msg string, args ...any) {
	a.l.Log(ctx, slog.LevelError, msg, args...)
}

func (a slogAdapter) With(args ...any) Logger { return slogAdapter{l: a.l.With(args...)} }

// ShortURI returns uri unchanged unless it is an inline data: URI, which is
// reduced to its media type and payload size.
func ShortURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return uri
	}
	meta, payload, _ := strings.Cut(rest, ",")
	return fmt.Sprintf("data:%s,<%d bytes>", meta, len(payload))
}

// URI returns an attribute for a resource URI, shortened with ShortURI.
func URI(key, uri string) slog.Attr {
	return slog.String(key, ShortURI(uri))
}
