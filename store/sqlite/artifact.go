package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/id"
)

const artifactColumns = `id, prefix, created_at, seq, media_type, payload, size`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// InsertArtifact persists a new artifact. The latest-stamp check and the
// insert share one transaction on the single pooled connection.
func (s *Store) InsertArtifact(ctx context.Context, a *artifact.Artifact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("payroll/sqlite: begin insert artifact: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := scanArtifact(tx.QueryRowContext(ctx, `
		SELECT `+artifactColumns+` FROM payroll_artifacts
		WHERE prefix = ?
		ORDER BY created_at DESC, seq DESC
		LIMIT 1`, a.Prefix))
	switch {
	case err == nil:
		if !cur.Stamp().Before(a.Stamp()) {
			return artifact.ErrConflict
		}
	case !isNoRows(err):
		return fmt.Errorf("payroll/sqlite: latest artifact: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payroll_artifacts (`+artifactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.Prefix, toNanos(a.CreatedAt), a.Seq, a.MediaType, a.Payload, a.Size,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return artifact.ErrConflict
		}
		return fmt.Errorf("payroll/sqlite: insert artifact: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("payroll/sqlite: commit artifact: %w", err)
	}
	return nil
}

// GetArtifact retrieves an artifact by ID.
func (s *Store) GetArtifact(ctx context.Context, artifactID id.ArtifactID) (*artifact.Artifact, error) {
	a, err := scanArtifact(s.db.QueryRowContext(ctx,
		`SELECT `+artifactColumns+` FROM payroll_artifacts WHERE id = ?`, artifactID.String()))
	if err != nil {
		if isNoRows(err) {
			return nil, payroll.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("payroll/sqlite: get artifact: %w", err)
	}
	return a, nil
}

// LatestArtifact returns the newest artifact of prefix.
func (s *Store) LatestArtifact(ctx context.Context, prefix string) (*artifact.Artifact, error) {
	a, err := scanArtifact(s.db.QueryRowContext(ctx, `
		SELECT `+artifactColumns+` FROM payroll_artifacts
		WHERE prefix = ?
		ORDER BY created_at DESC, seq DESC
		LIMIT 1`, prefix))
	if err != nil {
		if isNoRows(err) {
			return nil, payroll.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("payroll/sqlite: latest artifact: %w", err)
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
		where = append(where, "prefix = ?")
		args = append(args, opts.Prefix)
	}
	if !opts.Before.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, toNanos(opts.Before))
	}

	query := `SELECT ` + artifactColumns + ` FROM payroll_artifacts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY prefix, created_at, seq"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("payroll/sqlite: list artifacts: %w", err)
	}
	defer rows.Close()

	var out []*artifact.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("payroll/sqlite: scan artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteArtifact removes an artifact by ID.
func (s *Store) DeleteArtifact(ctx context.Context, artifactID id.ArtifactID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM payroll_artifacts WHERE id = ?`, artifactID.String())
	if err != nil {
		return fmt.Errorf("payroll/sqlite: delete artifact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payroll.ErrArtifactNotFound
	}
	return nil
}

func scanArtifact(row rowScanner) (*artifact.Artifact, error) {
	var (
		a       artifact.Artifact
		ids     string
		created int64
	)
	if err := row.Scan(&ids, &a.Prefix, &created, &a.Seq, &a.MediaType, &a.Payload, &a.Size); err != nil {
		return nil, err
	}
	parsed, err := id.ParseArtifactID(ids)
	if err != nil {
		return nil, err
	}
	a.ID = parsed
	a.CreatedAt = fromNanos(created)
	return &a, nil
}
