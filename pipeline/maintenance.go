package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// CleanupReport counts what Cleanup removed.
type CleanupReport struct {
	Artifacts int   `json:"artifacts"`
	Keys      int64 `json:"keys"`
	Results   int64 `json:"results"`
}

// Cleanup deletes artifacts older than olderThan, keeping the newest of
// each prefix, and purges expired idempotency keys and cached results.
// The pipeline itself never deletes; this is an explicit maintenance
// action.
func (o *Orchestrator) Cleanup(ctx context.Context, olderThan time.Duration) (*CleanupReport, error) {
	rep := &CleanupReport{}
	var err error

	if olderThan > 0 {
		cutoff := o.now().Add(-olderThan)
		if rep.Artifacts, err = o.archive.Prune(ctx, cutoff); err != nil {
			return rep, fmt.Errorf("payroll: prune artifacts: %w", err)
		}
	}
	if rep.Keys, err = o.guard.Purge(ctx); err != nil {
		return rep, fmt.Errorf("payroll: purge keys: %w", err)
	}
	if rep.Results, err = o.cache.Purge(ctx); err != nil {
		return rep, fmt.Errorf("payroll: purge results: %w", err)
	}

	o.logger.Info("cleanup finished",
		slog.Int("artifacts", rep.Artifacts),
		slog.Int64("keys", rep.Keys),
		slog.Int64("results", rep.Results),
	)
	return rep, nil
}
