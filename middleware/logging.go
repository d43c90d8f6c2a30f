package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/payroll/run"
)

// Logging returns middleware that logs operation start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, r *run.Run, next Handler) error {
		logger.Info("operation started",
			slog.String("operation", string(r.Operation)),
			slog.String("run_id", r.ID.String()),
			slog.Int64("actor", r.Actor),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("operation failed",
				slog.String("operation", string(r.Operation)),
				slog.String("run_id", r.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("operation completed",
				slog.String("operation", string(r.Operation)),
				slog.String("run_id", r.ID.String()),
				slog.String("state", string(r.State)),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
