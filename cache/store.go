package cache

import (
	"context"
	"time"

	"github.com/xraph/payroll/scope"
)

// Result is a completed operation's response, stored under its
// idempotency key.
type Result struct {
	Scope scope.Scope `json:"scope"`
	Key   string      `json:"key"`
	// Status is the outcome class of the original run (ok, not_found,
	// failed) so a replay reproduces it alongside the payload.
	Status    string    `json:"status"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the result is past its expiry at now.
func (r *Result) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Store defines the persistence contract for cached results.
type Store interface {
	// GetResult returns the result stored for (s, key) or
	// payroll.ErrCacheMiss. Stores may return expired results; the Cache
	// checks expiry on read.
	GetResult(ctx context.Context, s scope.Scope, key string) (*Result, error)

	// PutResult stores r, replacing any previous result for its key.
	PutResult(ctx context.Context, r *Result) error

	// PurgeResults removes results that expired before the given time.
	PurgeResults(ctx context.Context, before time.Time) (int64, error)
}
