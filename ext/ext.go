// Package ext defines the extension system for the payroll pipeline.
// Extensions are notified of lifecycle events (run admitted, artifact
// archived, recipient failed, etc.) and can react to them: logging,
// metrics, auditing.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/dispatch"
	"github.com/xraph/payroll/run"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Run lifecycle hooks
// ──────────────────────────────────────────────────

// RunAdmitted is called after the idempotency guard admits a run.
type RunAdmitted interface {
	OnRunAdmitted(ctx context.Context, r *run.Run) error
}

// RunRejected is called when a run is turned away as a duplicate.
type RunRejected interface {
	OnRunRejected(ctx context.Context, r *run.Run, err error) error
}

// RunCacheHit is called when a run is answered from the result cache.
type RunCacheHit interface {
	OnRunCacheHit(ctx context.Context, r *run.Run) error
}

// RunCompleted is called when a run reaches StateCompleted.
type RunCompleted interface {
	OnRunCompleted(ctx context.Context, r *run.Run, elapsed time.Duration) error
}

// RunFailed is called when a run reaches StateFailed.
type RunFailed interface {
	OnRunFailed(ctx context.Context, r *run.Run, err error) error
}

// ──────────────────────────────────────────────────
// Document and delivery hooks
// ──────────────────────────────────────────────────

// DocumentRejected is called when a builder rejects an employee with a
// validation error.
type DocumentRejected interface {
	OnDocumentRejected(ctx context.Context, r *run.Run, subject string, err error) error
}

// ArtifactArchived is called after a document is written to the archive.
type ArtifactArchived interface {
	OnArtifactArchived(ctx context.Context, r *run.Run, a *artifact.Artifact) error
}

// RecipientSent is called for every successful delivery.
type RecipientSent interface {
	OnRecipientSent(ctx context.Context, r *run.Run, o dispatch.Outcome) error
}

// RecipientFailed is called for every failed delivery.
type RecipientFailed interface {
	OnRecipientFailed(ctx context.Context, r *run.Run, o dispatch.Outcome) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// CronFired is called when a schedule entry fires and starts a run.
type CronFired interface {
	OnCronFired(ctx context.Context, entryName string, r *run.Run) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
