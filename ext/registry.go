package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/dispatch"
	"github.com/xraph/payroll/run"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time.
type entry[H any] struct {
	name string
	hook H
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	runAdmitted      []entry[RunAdmitted]
	runRejected      []entry[RunRejected]
	runCacheHit      []entry[RunCacheHit]
	runCompleted     []entry[RunCompleted]
	runFailed        []entry[RunFailed]
	documentRejected []entry[DocumentRejected]
	artifactArchived []entry[ArtifactArchived]
	recipientSent    []entry[RecipientSent]
	recipientFailed  []entry[RecipientFailed]
	cronFired        []entry[CronFired]
	shutdown         []entry[Shutdown]
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

func add[H any](list []entry[H], name string, e Extension) []entry[H] {
	if h, ok := e.(H); ok {
		return append(list, entry[H]{name, h})
	}
	return list
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	r.runAdmitted = add(r.runAdmitted, name, e)
	r.runRejected = add(r.runRejected, name, e)
	r.runCacheHit = add(r.runCacheHit, name, e)
	r.runCompleted = add(r.runCompleted, name, e)
	r.runFailed = add(r.runFailed, name, e)
	r.documentRejected = add(r.documentRejected, name, e)
	r.artifactArchived = add(r.artifactArchived, name, e)
	r.recipientSent = add(r.recipientSent, name, e)
	r.recipientFailed = add(r.recipientFailed, name, e)
	r.cronFired = add(r.cronFired, name, e)
	r.shutdown = add(r.shutdown, name, e)
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Run event emitters
// ──────────────────────────────────────────────────

// EmitRunAdmitted notifies all extensions that implement RunAdmitted.
func (r *Registry) EmitRunAdmitted(ctx context.Context, rn *run.Run) {
	for _, e := range r.runAdmitted {
		if err := e.hook.OnRunAdmitted(ctx, rn); err != nil {
			r.logHookError("OnRunAdmitted", e.name, err)
		}
	}
}

// EmitRunRejected notifies all extensions that implement RunRejected.
func (r *Registry) EmitRunRejected(ctx context.Context, rn *run.Run, runErr error) {
	for _, e := range r.runRejected {
		if err := e.hook.OnRunRejected(ctx, rn, runErr); err != nil {
			r.logHookError("OnRunRejected", e.name, err)
		}
	}
}

// EmitRunCacheHit notifies all extensions that implement RunCacheHit.
func (r *Registry) EmitRunCacheHit(ctx context.Context, rn *run.Run) {
	for _, e := range r.runCacheHit {
		if err := e.hook.OnRunCacheHit(ctx, rn); err != nil {
			r.logHookError("OnRunCacheHit", e.name, err)
		}
	}
}

// EmitRunCompleted notifies all extensions that implement RunCompleted.
func (r *Registry) EmitRunCompleted(ctx context.Context, rn *run.Run, elapsed time.Duration) {
	for _, e := range r.runCompleted {
		if err := e.hook.OnRunCompleted(ctx, rn, elapsed); err != nil {
			r.logHookError("OnRunCompleted", e.name, err)
		}
	}
}

// EmitRunFailed notifies all extensions that implement RunFailed.
func (r *Registry) EmitRunFailed(ctx context.Context, rn *run.Run, runErr error) {
	for _, e := range r.runFailed {
		if err := e.hook.OnRunFailed(ctx, rn, runErr); err != nil {
			r.logHookError("OnRunFailed", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Document and delivery event emitters
// ──────────────────────────────────────────────────

// EmitDocumentRejected notifies all extensions that implement DocumentRejected.
func (r *Registry) EmitDocumentRejected(ctx context.Context, rn *run.Run, subject string, docErr error) {
	for _, e := range r.documentRejected {
		if err := e.hook.OnDocumentRejected(ctx, rn, subject, docErr); err != nil {
			r.logHookError("OnDocumentRejected", e.name, err)
		}
	}
}

// EmitArtifactArchived notifies all extensions that implement ArtifactArchived.
func (r *Registry) EmitArtifactArchived(ctx context.Context, rn *run.Run, a *artifact.Artifact) {
	for _, e := range r.artifactArchived {
		if err := e.hook.OnArtifactArchived(ctx, rn, a); err != nil {
			r.logHookError("OnArtifactArchived", e.name, err)
		}
	}
}

// EmitRecipientSent notifies all extensions that implement RecipientSent.
func (r *Registry) EmitRecipientSent(ctx context.Context, rn *run.Run, o dispatch.Outcome) {
	for _, e := range r.recipientSent {
		if err := e.hook.OnRecipientSent(ctx, rn, o); err != nil {
			r.logHookError("OnRecipientSent", e.name, err)
		}
	}
}

// EmitRecipientFailed notifies all extensions that implement RecipientFailed.
func (r *Registry) EmitRecipientFailed(ctx context.Context, rn *run.Run, o dispatch.Outcome) {
	for _, e := range r.recipientFailed {
		if err := e.hook.OnRecipientFailed(ctx, rn, o); err != nil {
			r.logHookError("OnRecipientFailed", e.name, err)
		}
	}
}

// EmitOutcomes emits RecipientSent or RecipientFailed for every outcome.
func (r *Registry) EmitOutcomes(ctx context.Context, rn *run.Run, outcomes []dispatch.Outcome) {
	for _, o := range outcomes {
		if o.Status == dispatch.StatusSent {
			r.EmitRecipientSent(ctx, rn, o)
		} else {
			r.EmitRecipientFailed(ctx, rn, o)
		}
	}
}

// ──────────────────────────────────────────────────
// Other event emitters
// ──────────────────────────────────────────────────

// EmitCronFired notifies all extensions that implement CronFired.
func (r *Registry) EmitCronFired(ctx context.Context, entryName string, rn *run.Run) {
	for _, e := range r.cronFired {
		if err := e.hook.OnCronFired(ctx, entryName, rn); err != nil {
			r.logHookError("OnCronFired", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
