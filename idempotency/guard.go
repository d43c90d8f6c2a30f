package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/scope"
)

// Option configures a Guard.
type Option func(*Guard)

// WithRetention sets how long an accepted key is remembered. Zero keeps
// keys forever.
func WithRetention(d time.Duration) Option {
	return func(g *Guard) { g.retention = d }
}

// WithLogger sets the logger for the guard.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// Guard admits or rejects (scope, key) pairs.
type Guard struct {
	store     Store
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewGuard creates a Guard over store.
func NewGuard(store Store, opts ...Option) *Guard {
	g := &Guard{
		store:  store,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Admit claims key under s. It returns nil when the caller may proceed,
// payroll.ErrMissingKey for a blank key and payroll.ErrDuplicateKey when
// the key was already accepted. A context cancelled before the claim is
// attempted consumes no key. Store failures are returned as
// *payroll.ResourceError wrapping payroll.ErrStoreUnavailable.
func (g *Guard) Admit(ctx context.Context, s scope.Scope, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return payroll.ErrMissingKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := g.now()
	rec := &Record{Scope: s, Key: key, AcceptedAt: now}
	if g.retention > 0 {
		exp := now.Add(g.retention)
		rec.ExpiresAt = &exp
	}

	claimed, err := g.store.ClaimKey(ctx, rec)
	if err != nil {
		g.logger.Error("idempotency claim failed",
			slog.String("scope", s.String()),
			slog.String("error", err.Error()),
		)
		return payroll.NewResourceError("admit", errors.Join(payroll.ErrStoreUnavailable, err))
	}
	if !claimed {
		g.logger.Info("idempotency key rejected",
			slog.String("scope", s.String()),
			slog.String("key", key),
		)
		return payroll.ErrDuplicateKey
	}
	return nil
}

// Purge removes keys whose retention window has passed.
func (g *Guard) Purge(ctx context.Context) (int64, error) {
	return g.store.PurgeKeys(ctx, g.now())
}
