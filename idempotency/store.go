package idempotency

import (
	"context"
	"time"

	"github.com/xraph/payroll/scope"
)

// Record is an accepted idempotency key.
type Record struct {
	Scope      scope.Scope `json:"scope"`
	Key        string      `json:"key"`
	AcceptedAt time.Time   `json:"accepted_at"`
	// ExpiresAt is nil when the key is retained forever.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the record's retention window has passed.
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// Store defines the persistence contract for accepted keys.
type Store interface {
	// ClaimKey atomically inserts rec unless an unexpired record with the
	// same scope and key exists. It returns true when rec was inserted.
	ClaimKey(ctx context.Context, rec *Record) (bool, error)

	// PurgeKeys removes records whose retention ended before the given
	// time and returns how many were removed.
	PurgeKeys(ctx context.Context, before time.Time) (int64, error)
}
