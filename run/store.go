package run

import (
	"context"

	"github.com/xraph/payroll/id"
)

// ListOpts filters a run listing.
type ListOpts struct {
	// Operation restricts the listing to one operation. Empty lists all.
	Operation Operation
	// Actor restricts the listing to one actor. Zero lists all.
	Actor int64
	// Limit is the maximum number of runs to return. Zero means no limit.
	Limit int
}

// Store persists run records for inspection. Runs are written when they
// reach a terminal state.
type Store interface {
	// SaveRun inserts or replaces a run.
	SaveRun(ctx context.Context, r *Run) error

	// GetRun retrieves a run by ID or returns payroll.ErrRunNotFound.
	GetRun(ctx context.Context, runID id.RunID) (*Run, error)

	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context, opts ListOpts) ([]*Run, error)
}
