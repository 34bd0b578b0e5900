// Package logger provides the structured, levelled logger used across the
// service, built on log/slog.
//
// WithCtx returns the request-scoped logger injected by middleware.Logger,
// so every line written while serving a request carries its request_id:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("order placed", "order_id", id)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var base atomic.Pointer[slog.Logger]

// L returns the process-wide base logger.
func L() *slog.Logger { return base.Load() }

func init() {
	Setup(false, os.Stdout)
}

// Setup replaces the base logger. Production gets JSON at INFO for log
// aggregators; everything else gets human-readable text at DEBUG. Extra
// handlers (e.g. a MongoHandler) receive every record as well.
func Setup(production bool, w io.Writer, extra ...slog.Handler) *slog.Logger {
	var handler slog.Handler
	if production {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	if len(extra) > 0 {
		handler = NewMultiHandler(append([]slog.Handler{handler}, extra...)...)
	}

	l := slog.New(handler)
	base.Store(l)
	slog.SetDefault(l)
	return l
}

type ctxKey struct{}

// WithCtx returns the logger stored in ctx by InjectLogger, or the base
// logger when there is none.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
			return log
		}
	}
	return L()
}

// InjectLogger stores log in ctx. Called by the Logger middleware.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L().Debug(msg, args...) }
func Info(msg string, args ...any)  { L().Info(msg, args...) }
func Warn(msg string, args ...any)  { L().Warn(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }
