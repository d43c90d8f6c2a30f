package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/dispatch"
	"github.com/xraph/payroll/ext"
	"github.com/xraph/payroll/run"
)

// Compile-time interface checks.
var (
	_ ext.Extension        = (*Extension)(nil)
	_ ext.RunAdmitted      = (*Extension)(nil)
	_ ext.RunRejected      = (*Extension)(nil)
	_ ext.RunCompleted     = (*Extension)(nil)
	_ ext.RunFailed        = (*Extension)(nil)
	_ ext.DocumentRejected = (*Extension)(nil)
	_ ext.ArtifactArchived = (*Extension)(nil)
	_ ext.RecipientSent    = (*Extension)(nil)
	_ ext.RecipientFailed  = (*Extension)(nil)
	_ ext.CronFired        = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry of the audit trail.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// NewSlogRecorder returns a Recorder that writes every event as one log
// record at a level matching its severity.
func NewSlogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, evt *AuditEvent) error {
		level := slog.LevelInfo
		switch evt.Severity {
		case SeverityWarning:
			level = slog.LevelWarn
		case SeverityCritical:
			level = slog.LevelError
		}
		attrs := []slog.Attr{
			slog.String("action", evt.Action),
			slog.String("resource", evt.Resource),
			slog.String("resource_id", evt.ResourceID),
			slog.String("outcome", evt.Outcome),
		}
		for k, v := range evt.Metadata {
			attrs = append(attrs, slog.Any(k, v))
		}
		logger.LogAttrs(ctx, level, "audit", attrs...)
		return nil
	})
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges payroll lifecycle events to an audit trail backend.
// Each lifecycle hook emits a structured audit event through the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Run lifecycle hooks ─────────────────────────────

// OnRunAdmitted implements ext.RunAdmitted.
func (e *Extension) OnRunAdmitted(ctx context.Context, r *run.Run) error {
	return e.record(ctx, ActionRunAdmitted, SeverityInfo, OutcomeSuccess,
		ResourceRun, r.ID.String(), CategoryRun, nil, runMeta(r)...)
}

// OnRunRejected implements ext.RunRejected.
func (e *Extension) OnRunRejected(ctx context.Context, r *run.Run, runErr error) error {
	return e.record(ctx, ActionRunRejected, SeverityWarning, OutcomeFailure,
		ResourceRun, r.ID.String(), CategoryRun, runErr, runMeta(r)...)
}

// OnRunCompleted implements ext.RunCompleted.
func (e *Extension) OnRunCompleted(ctx context.Context, r *run.Run, elapsed time.Duration) error {
	return e.record(ctx, ActionRunCompleted, SeverityInfo, OutcomeSuccess,
		ResourceRun, r.ID.String(), CategoryRun, nil,
		append(runMeta(r), "elapsed_ms", elapsed.Milliseconds())...)
}

// OnRunFailed implements ext.RunFailed.
func (e *Extension) OnRunFailed(ctx context.Context, r *run.Run, runErr error) error {
	return e.record(ctx, ActionRunFailed, SeverityCritical, OutcomeFailure,
		ResourceRun, r.ID.String(), CategoryRun, runErr, runMeta(r)...)
}

// ── Document and delivery hooks ─────────────────────

// OnDocumentRejected implements ext.DocumentRejected.
func (e *Extension) OnDocumentRejected(ctx context.Context, r *run.Run, subject string, docErr error) error {
	return e.record(ctx, ActionDocumentRejected, SeverityWarning, OutcomeFailure,
		ResourceEmployee, subject, CategoryDocument, docErr,
		append(runMeta(r), "run_id", r.ID.String())...)
}

// OnArtifactArchived implements ext.ArtifactArchived.
func (e *Extension) OnArtifactArchived(ctx context.Context, r *run.Run, a *artifact.Artifact) error {
	return e.record(ctx, ActionArtifactArchived, SeverityInfo, OutcomeSuccess,
		ResourceArtifact, a.ID.String(), CategoryDocument, nil,
		append(runMeta(r),
			"run_id", r.ID.String(),
			"prefix", a.Prefix,
			"size", a.Size,
		)...)
}

// OnRecipientSent implements ext.RecipientSent.
func (e *Extension) OnRecipientSent(ctx context.Context, r *run.Run, o dispatch.Outcome) error {
	return e.record(ctx, ActionRecipientSent, SeverityInfo, OutcomeSuccess,
		ResourceRecipient, o.RecipientID, CategoryDelivery, nil,
		append(runMeta(r), "run_id", r.ID.String(), "address", o.Address)...)
}

// OnRecipientFailed implements ext.RecipientFailed.
func (e *Extension) OnRecipientFailed(ctx context.Context, r *run.Run, o dispatch.Outcome) error {
	sendErr := o.Err
	if sendErr == nil && o.Error != "" {
		sendErr = errors.New(o.Error)
	}
	return e.record(ctx, ActionRecipientFailed, SeverityWarning, OutcomeFailure,
		ResourceRecipient, o.RecipientID, CategoryDelivery, sendErr,
		append(runMeta(r), "run_id", r.ID.String(), "address", o.Address)...)
}

// ── Cron lifecycle hooks ────────────────────────────

// OnCronFired implements ext.CronFired.
func (e *Extension) OnCronFired(ctx context.Context, entryName string, r *run.Run) error {
	kv := []any{}
	if r != nil {
		kv = append(runMeta(r), "run_id", r.ID.String())
	}
	return e.record(ctx, ActionCronFired, SeverityInfo, OutcomeSuccess,
		ResourceCron, entryName, CategoryCron, nil, kv...)
}

// ── Internal helpers ────────────────────────────────

func runMeta(r *run.Run) []any {
	return []any{
		"operation", string(r.Operation),
		"actor", r.Actor,
		"key", r.Key,
	}
}

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			slog.String("action", action),
			slog.String("resource_id", resourceID),
			slog.String("error", recErr.Error()),
		)
	}
	return nil
}
