// Package logger provides a structured, levelled logger built on log/slog.
//
// WithCtx returns the logger the request middleware stored in the context,
// already tagged with request_id, so every line a handler or service writes
// is correlated:
//
//	log := logger.WithCtx(ctx)
//	log.Info("request submitted", "request_id", id, "product_id", pid)
package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/shashiranjanraj/kachra/config"
)

var L *slog.Logger

func init() {
	L = slog.New(consoleHandler())
	slog.SetDefault(L)
}

// consoleHandler is JSON in production and human-readable text elsewhere.
func consoleHandler() slog.Handler {
	if config.IsProduction() {
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// Tee adds extra sinks next to the console handler and makes the result the
// process default.
func Tee(extra ...slog.Handler) {
	hs := append([]slog.Handler{consoleHandler()}, extra...)
	L = slog.New(NewMultiHandler(hs...))
	slog.SetDefault(L)
}

type ctxKey struct{}

// WithCtx returns the per-request logger stored in ctx, or the base logger.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a *slog.Logger (pre-tagged with request_id) into ctx.
// Called by the Logger middleware.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
