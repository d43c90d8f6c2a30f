package postgres

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
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO payroll_keys (scope, key, accepted_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (scope, key) DO UPDATE
			SET accepted_at = EXCLUDED.accepted_at,
			    expires_at  = EXCLUDED.expires_at
			WHERE payroll_keys.expires_at IS NOT NULL
			  AND payroll_keys.expires_at <= EXCLUDED.accepted_at`,
		rec.Scope.String(), rec.Key, rec.AcceptedAt, rec.ExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("payroll/postgres: claim key: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// PurgeKeys removes records whose retention ended before the given time.
func (s *Store) PurgeKeys(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM payroll_keys WHERE expires_at IS NOT NULL AND expires_at <= $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("payroll/postgres: purge keys: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetResult returns the stored result for (sc, key).
func (s *Store) GetResult(ctx context.Context, sc scope.Scope, key string) (*cache.Result, error) {
	r := &cache.Result{Scope: sc, Key: key}
	err := s.pool.QueryRow(ctx, `
		SELECT status, payload, created_at, expires_at
		FROM payroll_results WHERE scope = $1 AND key = $2`,
		sc.String(), key,
	).Scan(&r.Status, &r.Payload, &r.CreatedAt, &r.ExpiresAt)
	if err != nil {
		if isNoRows(err) {
			return nil, payroll.ErrCacheMiss
		}
		return nil, fmt.Errorf("payroll/postgres: get result: %w", err)
	}
	return r, nil
}

// PutResult stores r, replacing any previous result for its key.
func (s *Store) PutResult(ctx context.Context, r *cache.Result) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO payroll_results (scope, key, status, payload, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (scope, key) DO UPDATE
			SET status     = EXCLUDED.status,
			    payload    = EXCLUDED.payload,
			    created_at = EXCLUDED.created_at,
			    expires_at = EXCLUDED.expires_at`,
		r.Scope.String(), r.Key, r.Status, r.Payload, r.CreatedAt, r.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("payroll/postgres: put result: %w", err)
	}
	return nil
}

// PurgeResults removes results that expired before the given time.
func (s *Store) PurgeResults(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM payroll_results WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, fmt.Errorf("payroll/postgres: purge results: %w", err)
	}
	return tag.RowsAffected(), nil
}
