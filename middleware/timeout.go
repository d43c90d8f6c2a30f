package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/payroll/run"
)

// Timeout returns middleware that bounds a whole operation by d. A zero d
// makes it a pass-through. Work still running at the deadline observes a
// cancelled context; the idempotency key stays consumed.
func Timeout(d time.Duration, logger *slog.Logger) Middleware {
	return func(ctx context.Context, r *run.Run, next Handler) error {
		if d > 0 {
			logger.Debug("operation timeout set",
				slog.String("run_id", r.ID.String()),
				slog.Duration("timeout", d),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return next(ctx)
	}
}
