// Package cache memoizes completed operation results under their
// idempotency key for a bounded window, so an identical retry receives the
// original response without re-running the pipeline.
//
// The cache is an optimization, not a correctness dependency: read
// failures are treated as misses and write failures are logged and
// dropped. Expiry is passive and checked on every read.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/scope"
)

// DefaultTTL is used when the cache is created without WithTTL.
const DefaultTTL = time.Hour

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets how long a result stays valid.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) { c.ttl = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Cache reads and writes results through a Store.
type Cache struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Cache over store. A nil store yields a Cache that always
// misses.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		ttl:    DefaultTTL,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured validity window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the unexpired result for (s, key).
func (c *Cache) Get(ctx context.Context, s scope.Scope, key string) (*Result, bool) {
	if c.store == nil || key == "" {
		return nil, false
	}
	r, err := c.store.GetResult(ctx, s, key)
	if err != nil {
		if !errors.Is(err, payroll.ErrCacheMiss) {
			c.logger.Warn("result cache read failed",
				slog.String("scope", s.String()),
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}
	if r.Expired(c.now()) {
		return nil, false
	}
	return r, true
}

// Put stores payload for (s, key) with the configured TTL. Failures are
// logged and swallowed.
func (c *Cache) Put(ctx context.Context, s scope.Scope, key, status string, payload []byte) {
	c.PutTTL(ctx, s, key, status, payload, c.ttl)
}

// PutTTL is Put with an explicit ttl. A non-positive ttl stores nothing.
func (c *Cache) PutTTL(ctx context.Context, s scope.Scope, key, status string, payload []byte, ttl time.Duration) {
	if c.store == nil || key == "" || ttl <= 0 {
		return
	}
	now := c.now()
	r := &Result{
		Scope:     s,
		Key:       key,
		Status:    status,
		Payload:   append([]byte(nil), payload...),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := c.store.PutResult(ctx, r); err != nil {
		c.logger.Warn("result cache write failed",
			slog.String("scope", s.String()),
			slog.String("error", err.Error()),
		)
	}
}

// Purge removes results that have expired.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	if c.store == nil {
		return 0, nil
	}
	return c.store.PurgeResults(ctx, c.now())
}
