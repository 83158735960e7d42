// Package logger carries a `*slog.Logger` through a `context.Context`.
package logger

import (
	"context"
	"log/slog"
)

// Set returns a copy of `ctx` which carries `l`.
func Set(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// Get returns the logger carried by `ctx`, falling back to `slog.Default()`.
func Get(ctx context.Context) (l *slog.Logger) {
	if v := ctx.Value(loggerKey); v != nil {
		if l = v.(*slog.Logger); l != nil {
			return
		}
	}
	l = slog.Default()
	return
}

// With attaches `args` to the logger carried by `ctx`.
func With(ctx context.Context, args ...any) context.Context {
	return Set(ctx, Get(ctx).With(args...))
}

type loggerKeyType string

const loggerKey loggerKeyType = "loggerKey"
