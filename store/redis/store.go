package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/cache"
	"github.com/xraph/payroll/idempotency"
	"github.com/xraph/payroll/scope"
)

// Compile-time interface checks.
var (
	_ idempotency.Store = (*Store)(nil)
	_ cache.Store       = (*Store)(nil)
)

// minTTL bounds the TTL of records whose retention already ended.
const minTTL = time.Millisecond

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store implements store.KeyStore backed by Redis.
type Store struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// New creates a new Redis-backed key store. The caller owns the client
// unless Close is called.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() redis.UniversalClient { return s.client }

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error { return s.client.Close() }

// ── Idempotency keys ─────────────────────────────────

// ClaimKey sets the claim if absent. Records without an expiry are kept
// until deleted.
func (s *Store) ClaimKey(ctx context.Context, rec *idempotency.Record) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("payroll/redis: marshal claim: %w", err)
	}
	var ttl time.Duration
	if rec.ExpiresAt != nil {
		ttl = max(rec.ExpiresAt.Sub(rec.AcceptedAt), minTTL)
	}
	ok, err := s.client.SetNX(ctx, claimKey(rec.Scope, rec.Key), data, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("payroll/redis: claim key: %w", err)
	}
	return ok, nil
}

// PurgeKeys reports zero: claims expire through their TTL.
func (s *Store) PurgeKeys(context.Context, time.Time) (int64, error) { return 0, nil }

// ── Result cache ─────────────────────────────────────

// GetResult returns the stored result for (sc, key).
func (s *Store) GetResult(ctx context.Context, sc scope.Scope, key string) (*cache.Result, error) {
	data, err := s.client.Get(ctx, resultKey(sc, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, payroll.ErrCacheMiss
		}
		return nil, fmt.Errorf("payroll/redis: get result: %w", err)
	}
	var r cache.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("payroll/redis: unmarshal result: %w", err)
	}
	return &r, nil
}

// PutResult stores r with a TTL matching its lifetime.
func (s *Store) PutResult(ctx context.Context, r *cache.Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("payroll/redis: marshal result: %w", err)
	}
	ttl := max(r.ExpiresAt.Sub(r.CreatedAt), minTTL)
	if err := s.client.Set(ctx, resultKey(r.Scope, r.Key), data, ttl).Err(); err != nil {
		return fmt.Errorf("payroll/redis: put result: %w", err)
	}
	return nil
}

// PurgeResults reports zero: results expire through their TTL.
func (s *Store) PurgeResults(context.Context, time.Time) (int64, error) { return 0, nil }
