package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/dispatch"
	"github.com/xraph/payroll/ext"
	"github.com/xraph/payroll/run"
)

// meterName is the instrumentation scope of the lifecycle counters.
const meterName = "github.com/xraph/payroll/observability"

// Compile-time interface checks.
var (
	_ ext.Extension        = (*MetricsExtension)(nil)
	_ ext.RunAdmitted      = (*MetricsExtension)(nil)
	_ ext.RunRejected      = (*MetricsExtension)(nil)
	_ ext.RunCacheHit      = (*MetricsExtension)(nil)
	_ ext.RunCompleted     = (*MetricsExtension)(nil)
	_ ext.RunFailed        = (*MetricsExtension)(nil)
	_ ext.DocumentRejected = (*MetricsExtension)(nil)
	_ ext.ArtifactArchived = (*MetricsExtension)(nil)
	_ ext.RecipientSent    = (*MetricsExtension)(nil)
	_ ext.RecipientFailed  = (*MetricsExtension)(nil)
	_ ext.CronFired        = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle counters through an OTel
// meter. Run, document, artifact and recipient counters carry an
// "operation" attribute; the cron counter carries "entry".
type MetricsExtension struct {
	RunAdmitted      metric.Int64Counter
	RunRejected      metric.Int64Counter
	RunCacheHit      metric.Int64Counter
	RunCompleted     metric.Int64Counter
	RunFailed        metric.Int64Counter
	DocumentRejected metric.Int64Counter
	ArtifactArchived metric.Int64Counter
	ArtifactBytes    metric.Int64Counter
	RecipientSent    metric.Int64Counter
	RecipientFailed  metric.Int64Counter
	CronFired        metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension on the global
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension on meter.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	counter := func(name, desc string) metric.Int64Counter {
		// On error the OTel API returns a noop instrument.
		c, _ := meter.Int64Counter(name, metric.WithDescription(desc))
		return c
	}
	return &MetricsExtension{
		RunAdmitted:      counter("payroll.run.admitted", "Runs admitted by the idempotency guard"),
		RunRejected:      counter("payroll.run.rejected", "Runs rejected as duplicates"),
		RunCacheHit:      counter("payroll.run.cache_hits", "Runs answered from the result cache"),
		RunCompleted:     counter("payroll.run.completed", "Runs that completed"),
		RunFailed:        counter("payroll.run.failed", "Runs that failed as a whole"),
		DocumentRejected: counter("payroll.document.rejected", "Documents rejected by validation"),
		ArtifactArchived: counter("payroll.artifact.archived", "Artifacts written to the archive"),
		ArtifactBytes:    counter("payroll.artifact.bytes", "Bytes written to the archive"),
		RecipientSent:    counter("payroll.recipient.sent", "Successful deliveries"),
		RecipientFailed:  counter("payroll.recipient.failed", "Failed deliveries"),
		CronFired:        counter("payroll.cron.fired", "Schedule entries fired"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

func opAttr(r *run.Run) metric.AddOption {
	return metric.WithAttributes(attribute.String("operation", string(r.Operation)))
}

// ── Run lifecycle hooks ─────────────────────────────

// OnRunAdmitted implements ext.RunAdmitted.
func (m *MetricsExtension) OnRunAdmitted(ctx context.Context, r *run.Run) error {
	m.RunAdmitted.Add(ctx, 1, opAttr(r))
	return nil
}

// OnRunRejected implements ext.RunRejected.
func (m *MetricsExtension) OnRunRejected(ctx context.Context, r *run.Run, _ error) error {
	m.RunRejected.Add(ctx, 1, opAttr(r))
	return nil
}

// OnRunCacheHit implements ext.RunCacheHit.
func (m *MetricsExtension) OnRunCacheHit(ctx context.Context, r *run.Run) error {
	m.RunCacheHit.Add(ctx, 1, opAttr(r))
	return nil
}

// OnRunCompleted implements ext.RunCompleted.
func (m *MetricsExtension) OnRunCompleted(ctx context.Context, r *run.Run, _ time.Duration) error {
	m.RunCompleted.Add(ctx, 1, opAttr(r))
	return nil
}

// OnRunFailed implements ext.RunFailed.
func (m *MetricsExtension) OnRunFailed(ctx context.Context, r *run.Run, _ error) error {
	m.RunFailed.Add(ctx, 1, opAttr(r))
	return nil
}

// ── Document and delivery hooks ─────────────────────

// OnDocumentRejected implements ext.DocumentRejected.
func (m *MetricsExtension) OnDocumentRejected(ctx context.Context, r *run.Run, _ string, _ error) error {
	m.DocumentRejected.Add(ctx, 1, opAttr(r))
	return nil
}

// OnArtifactArchived implements ext.ArtifactArchived.
func (m *MetricsExtension) OnArtifactArchived(ctx context.Context, r *run.Run, a *artifact.Artifact) error {
	m.ArtifactArchived.Add(ctx, 1, opAttr(r))
	m.ArtifactBytes.Add(ctx, a.Size, opAttr(r))
	return nil
}

// OnRecipientSent implements ext.RecipientSent.
func (m *MetricsExtension) OnRecipientSent(ctx context.Context, r *run.Run, _ dispatch.Outcome) error {
	m.RecipientSent.Add(ctx, 1, opAttr(r))
	return nil
}

// OnRecipientFailed implements ext.RecipientFailed.
func (m *MetricsExtension) OnRecipientFailed(ctx context.Context, r *run.Run, _ dispatch.Outcome) error {
	m.RecipientFailed.Add(ctx, 1, opAttr(r))
	return nil
}

// ── Cron lifecycle hooks ────────────────────────────

// OnCronFired implements ext.CronFired.
func (m *MetricsExtension) OnCronFired(ctx context.Context, entryName string, _ *run.Run) error {
	m.CronFired.Add(ctx, 1, metric.WithAttributes(attribute.String("entry", entryName)))
	return nil
}
