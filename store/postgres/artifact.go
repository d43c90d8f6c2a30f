package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/id"
)

const artifactColumns = `id, prefix, created_at, seq, media_type, payload, size`

// InsertArtifact persists a new artifact. A transaction-scoped advisory
// lock on the prefix serializes writers, so the latest-stamp check and the
// insert cannot interleave with another instance.
func (s *Store) InsertArtifact(ctx context.Context, a *artifact.Artifact) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("payroll/postgres: begin insert artifact: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, a.Prefix); err != nil {
		return fmt.Errorf("payroll/postgres: lock prefix: %w", err)
	}

	cur, err := scanArtifact(tx.QueryRow(ctx, `
		SELECT `+artifactColumns+` FROM payroll_artifacts
		WHERE prefix = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1`, a.Prefix))
	switch {
	case err == nil:
		if !cur.Stamp().Before(a.Stamp()) {
			return artifact.ErrConflict
		}
	case !isNoRows(err):
		return fmt.Errorf("payroll/postgres: latest artifact: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO payroll_artifacts (`+artifactColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID.String(), a.Prefix, a.CreatedAt, a.Seq, a.MediaType, a.Payload, a.Size,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return artifact.ErrConflict
		}
		return fmt.Errorf("payroll/postgres: insert artifact: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("payroll/postgres: commit artifact: %w", err)
	}
	return nil
}

// GetArtifact retrieves an artifact by ID.
func (s *Store) GetArtifact(ctx context.Context, artifactID id.ArtifactID) (*artifact.Artifact, error) {
	a, err := scanArtifact(s.pool.QueryRow(ctx,
		`SELECT `+artifactColumns+` FROM payroll_artifacts WHERE id = $1`,
		artifactID.String(),
	))
	if err != nil {
		if isNoRows(err) {
			return nil, payroll.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("payroll/postgres: get artifact: %w", err)
	}
	return a, nil
}

// LatestArtifact returns the newest artifact of prefix.
func (s *Store) LatestArtifact(ctx context.Context, prefix string) (*artifact.Artifact, error) {
	a, err := scanArtifact(s.pool.QueryRow(ctx, `
		SELECT `+artifactColumns+` FROM payroll_artifacts
		WHERE prefix = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1`, prefix))
	if err != nil {
		if isNoRows(err) {
			return nil, payroll.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("payroll/postgres: latest artifact: %w", err)
	}
	return a, nil
}

// ListArtifacts returns artifacts ordered by prefix then stamp.
func (s *Store) ListArtifacts(ctx context.Context, opts artifact.ListOpts) ([]*artifact.Artifact, error) {
	var (
		where []string
		args  []any
	)
	if opts.Prefix != "" {
		args = append(args, opts.Prefix)
		where = append(where, fmt.Sprintf("prefix = $%d", len(args)))
	}
	if !opts.Before.IsZero() {
		args = append(args, opts.Before)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}

	query := `SELECT ` + artifactColumns + ` FROM payroll_artifacts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY prefix, created_at, seq"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("payroll/postgres: list artifacts: %w", err)
	}
	defer rows.Close()

	var out []*artifact.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("payroll/postgres: scan artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteArtifact removes an artifact by ID.
func (s *Store) DeleteArtifact(ctx context.Context, artifactID id.ArtifactID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM payroll_artifacts WHERE id = $1`, artifactID.String())
	if err != nil {
		return fmt.Errorf("payroll/postgres: delete artifact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrArtifactNotFound
	}
	return nil
}

func scanArtifact(row pgx.Row) (*artifact.Artifact, error) {
	var (
		a   artifact.Artifact
		ids string
	)
	if err := row.Scan(&ids, &a.Prefix, &a.CreatedAt, &a.Seq, &a.MediaType, &a.Payload, &a.Size); err != nil {
		return nil, err
	}
	parsed, err := id.ParseArtifactID(ids)
	if err != nil {
		return nil, err
	}
	a.ID = parsed
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}
