package logging

import (
	"context"
	"log/slog"

	"go.uber.org/zap"
)

// NewZap returns a Logger backed by a zap logger. Arguments are the same
// alternating key/value pairs slog takes; slog.Attr values are converted to
// zap fields. Passing nil yields a no-op logger.
func NewZap(logger *zap.Logger) Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &zapLogger{s: logger.Sugar()}
}

type zapLogger struct {
	s *zap.SugaredLogger
}

func (l *zapLogger) Debug(_ context.Context, msg string, args ...any) {
	l.s.Debugw(msg, zapArgs(args)...)
}

func (l *zapLogger) Info(_ context.Context, msg string, args ...any) {
	l.s.Infow(msg, zapArgs(args)...)
}

func (l *zapLogger) Warn(_ context.Context, msg string, args ...any) {
	l.s.Warnw(msg, zapArgs(args)...)
}

func (l *zapLogger) Error(_ context.Context, msg string, args ...any) {
	l.s.Errorw(msg, zapArgs(args)...)
}

func (l *zapLogger) With(args ...any) Logger {
	return &zapLogger{s: l.s.With(zapArgs(args)...)}
}

func zapArgs(args []any) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		if attr, ok := a.(slog.Attr); ok {
			out = append(out, zap.Any(attr.Key, attr.Value.Resolve().Any()))
			continue
		}
		out = append(out, a)
	}
	return out
}
