package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/cache"
	"github.com/xraph/payroll/idempotency"
	"github.com/xraph/payroll/scope"
)

// ClaimKey inserts rec unless an unexpired record with the same scope and
// key exists. An expired record is taken over in the same statement.
func (s *Store) ClaimKey(ctx context.Context, rec *idempotency.Record) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO payroll_keys (scope, key, accepted_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (scope, key) DO UPDATE
			SET accepted_at = excluded.accepted_at,
			    expires_at  = excluded.expires_at
			WHERE payroll_keys.expires_at IS NOT NULL
			  AND payroll_keys.expires_at <= excluded.accepted_at`,
		rec.Scope.String(), rec.Key, toNanos(rec.AcceptedAt), toNullNanos(rec.ExpiresAt),
	)
	if err != nil {
		return false, fmt.Errorf("payroll/sqlite: claim key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("payroll/sqlite: claim key: %w", err)
	}
	return n == 1, nil
}

// PurgeKeys removes records whose retention ended before the given time.
func (s *Store) PurgeKeys(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM payroll_keys WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		toNanos(before),
	)
	if err != nil {
		return 0, fmt.Errorf("payroll/sqlite: purge keys: %w", err)
	}
	return res.RowsAffected()
}

// GetResult returns the stored result for (sc, key).
func (s *Store) GetResult(ctx context.Context, sc scope.Scope, key string) (*cache.Result, error) {
	r := &cache.Result{Scope: sc, Key: key}
	var created, expires int64
	err := s.db.QueryRowContext(ctx, `
		SELECT status, payload, created_at, expires_at
		FROM payroll_results WHERE scope = ? AND key = ?`,
		sc.String(), key,
	).Scan(&r.Status, &r.Payload, &created, &expires)
	if err != nil {
		if isNoRows(err) {
			return nil, payroll.ErrCacheMiss
		}
		return nil, fmt.Errorf("payroll/sqlite: get result: %w", err)
	}
	r.CreatedAt = fromNanos(created)
	r.ExpiresAt = fromNanos(expires)
	return r, nil
}

// PutResult stores r, replacing any previous result for its key.
func (s *Store) PutResult(ctx context.Context, r *cache.Result) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payroll_results (scope, key, status, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (scope, key) DO UPDATE
			SET status     = excluded.status,
			    payload    = excluded.payload,
			    created_at = excluded.created_at,
			    expires_at = excluded.expires_at`,
		r.Scope.String(), r.Key, r.Status, r.Payload, toNanos(r.CreatedAt), toNanos(r.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("payroll/sqlite: put result: %w", err)
	}
	return nil
}

// PurgeResults removes results that expired before the given time.
func (s *Store) PurgeResults(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM payroll_results WHERE expires_at <= ?`, toNanos(before))
	if err != nil {
		return 0, fmt.Errorf("payroll/sqlite: purge results: %w", err)
	}
	return res.RowsAffected()
}
