package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/id"
	"github.com/xraph/payroll/run"
)

const runColumns = `id, operation, actor, key, state, started_at, completed_at, last_error, history`

// SaveRun inserts or replaces a run.
func (s *Store) SaveRun(ctx context.Context, r *run.Run) error {
	history, err := json.Marshal(r.History)
	if err != nil {
		return fmt.Errorf("payroll/postgres: marshal run history: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO payroll_runs (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
			SET state        = EXCLUDED.state,
			    completed_at = EXCLUDED.completed_at,
			    last_error   = EXCLUDED.last_error,
			    history      = EXCLUDED.history`,
		r.ID.String(), string(r.Operation), r.Actor, r.Key, string(r.State),
		r.StartedAt, r.CompletedAt, r.LastError, history,
	)
	if err != nil {
		return fmt.Errorf("payroll/postgres: save run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, runID id.RunID) (*run.Run, error) {
	r, err := scanRun(s.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM payroll_runs WHERE id = $1`, runID.String()))
	if err != nil {
		if isNoRows(err) {
			return nil, payroll.ErrRunNotFound
		}
		return nil, fmt.Errorf("payroll/postgres: get run: %w", err)
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
		args = append(args, string(opts.Operation))
		where = append(where, fmt.Sprintf("operation = $%d", len(args)))
	}
	if opts.Actor != 0 {
		args = append(args, opts.Actor)
		where = append(where, fmt.Sprintf("actor = $%d", len(args)))
	}

	query := `SELECT ` + runColumns + ` FROM payroll_runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("payroll/postgres: list runs: %w", err)
	}
	defer rows.Close()

	var out []*run.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("payroll/postgres: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRun(row pgx.Row) (*run.Run, error) {
	var (
		r       run.Run
		ids     string
		op      string
		state   string
		history []byte
	)
	if err := row.Scan(&ids, &op, &r.Actor, &r.Key, &state, &r.StartedAt, &r.CompletedAt, &r.LastError, &history); err != nil {
		return nil, err
	}
	parsed, err := id.ParseRunID(ids)
	if err != nil {
		return nil, err
	}
	r.ID = parsed
	r.Operation = run.Operation(op)
	r.State = run.State(state)
	if len(history) > 0 {
		if err := json.Unmarshal(history, &r.History); err != nil {
			return nil, err
		}
	}
	return &r, nil
}
