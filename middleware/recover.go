package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/payroll/run"
)

// Recover returns middleware that recovers from panics in the chain.
// Panics are converted to errors and logged with a stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, r *run.Run, next Handler) (retErr error) {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("operation panicked",
					slog.String("operation", string(r.Operation)),
					slog.String("run_id", r.ID.String()),
					slog.Any("panic", p),
					slog.String("stack", string(debug.Stack())),
				)
				retErr = fmt.Errorf("panic in %s: %v", r.Operation, p)
			}
		}()
		return next(ctx)
	}
}
