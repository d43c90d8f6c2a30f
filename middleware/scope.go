package middleware

import (
	"context"

	"github.com/xraph/payroll/run"
	"github.com/xraph/payroll/scope"
)

// Scope returns middleware that attaches the run's (operation, actor)
// scope to the context so lower layers can log it.
func Scope() Middleware {
	return func(ctx context.Context, r *run.Run, next Handler) error {
		return next(scope.With(ctx, r.Scope()))
	}
}
