package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/id"
	"github.com/xraph/payroll/run"
)

const runColumns = `id, operation, actor, key, state, started_at, completed_at, last_error, history`

// SaveRun inserts or replaces a run.
func (s *Store) SaveRun(ctx context.Context, r *run.Run) error {
	history, err := json.Marshal(r.History)
	if err != nil {
		return fmt.Errorf("payroll/sqlite: marshal run history: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO payroll_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
			SET state        = excluded.state,
			    completed_at = excluded.completed_at,
			    last_error   = excluded.last_error,
			    history      = excluded.history`,
		r.ID.String(), string(r.Operation), r.Actor, r.Key, string(r.State),
		toNanos(r.StartedAt), toNullNanos(r.CompletedAt), r.LastError, string(history),
	)
	if err != nil {
		return fmt.Errorf("payroll/sqlite: save run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, runID id.RunID) (*run.Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM payroll_runs WHERE id = ?`, runID.String()))
	if err != nil {
		if isNoRows(err) {
			return nil, payroll.ErrRunNotFound
		}
		return nil, fmt.Errorf("payroll/sqlite: get run: %w", err)
	}
	return r, nil
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, opts run.ListOpts) ([]*run.Run, error) {
	var (
		where []string
		args  []any
	)
	if opts.Operation != "" {
		where = append(where, "operation = ?")
		args = append(args, string(opts.Operation))
	}
	if opts.Actor != 0 {
		where = append(where, "actor = ?")
		args = append(args, opts.Actor)
	}

	query := `SELECT ` + runColumns + ` FROM payroll_runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("payroll/sqlite: list runs: %w", err)
	}
	defer rows.Close()

	var out []*run.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("payroll/sqlite: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRun(row rowScanner) (*run.Run, error) {
	var (
		r         run.Run
		ids       string
		op, state string
		started   int64
		completed sql.NullInt64
		history   string
	)
	if err := row.Scan(&ids, &op, &r.Actor, &r.Key, &state, &started, &completed, &r.LastError, &history); err != nil {
		return nil, err
	}
	parsed, err := id.ParseRunID(ids)
	if err != nil {
		return nil, err
	}
	r.ID = parsed
	r.Operation = run.Operation(op)
	r.State = run.State(state)
	r.StartedAt = fromNanos(started)
	r.CompletedAt = fromNullNanos(completed)
	if history != "" {
		if err := json.Unmarshal([]byte(history), &r.History); err != nil {
			return nil, err
		}
	}
	return &r, nil
}
