package observability_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/dispatch"
	"github.com/xraph/payroll/ext"
	"github.com/xraph/payroll/observability"
	"github.com/xraph/payroll/run"
)

func newTestExtension() (*observability.MetricsExtension, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return observability.NewMetricsExtensionWithMeter(mp.Meter("test")), reader
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: expected Sum[int64], got %T", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func newTestRun() *run.Run {
	return run.New(run.OpSendIndividualDocuments, 7, "k1")
}

func TestMetricsExtension_Name(t *testing.T) {
	e, _ := newTestExtension()
	if e.Name() != "observability-metrics" {
		t.Errorf("expected name %q, got %q", "observability-metrics", e.Name())
	}
}

func TestMetricsExtension_Hooks(t *testing.T) {
	e, reader := newTestExtension()
	ctx := context.Background()
	r := newTestRun()

	tests := []struct {
		name   string
		metric string
		fire   func() error
		want   int64
	}{
		{"admitted", "payroll.run.admitted", func() error { return e.OnRunAdmitted(ctx, r) }, 1},
		{"rejected", "payroll.run.rejected", func() error { return e.OnRunRejected(ctx, r, errors.New("dup")) }, 1},
		{"cache hit", "payroll.run.cache_hits", func() error { return e.OnRunCacheHit(ctx, r) }, 1},
		{"completed", "payroll.run.completed", func() error { return e.OnRunCompleted(ctx, r, time.Second) }, 1},
		{"failed", "payroll.run.failed", func() error { return e.OnRunFailed(ctx, r, errors.New("x")) }, 1},
		{"document rejected", "payroll.document.rejected", func() error { return e.OnDocumentRejected(ctx, r, "E1", errors.New("x")) }, 1},
		{"archived", "payroll.artifact.archived", func() error { return e.OnArtifactArchived(ctx, r, &artifact.Artifact{Size: 512}) }, 1},
		{"sent", "payroll.recipient.sent", func() error { return e.OnRecipientSent(ctx, r, dispatch.Outcome{}) }, 1},
		{"recipient failed", "payroll.recipient.failed", func() error { return e.OnRecipientFailed(ctx, r, dispatch.Outcome{}) }, 1},
		{"cron", "payroll.cron.fired", func() error { return e.OnCronFired(ctx, "monthly", r) }, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fire(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := counterValue(t, reader, tt.metric); got != tt.want {
				t.Errorf("%s = %d, want %d", tt.metric, got, tt.want)
			}
		})
	}

	if got := counterValue(t, reader, "payroll.artifact.bytes"); got != 512 {
		t.Errorf("payroll.artifact.bytes = %d, want 512", got)
	}
}

func TestMetricsExtension_ThroughRegistry(t *testing.T) {
	e, reader := newTestExtension()
	reg := ext.NewRegistry(slog.Default())
	reg.Register(e)

	ctx := context.Background()
	reg.EmitOutcomes(ctx, newTestRun(), []dispatch.Outcome{
		{Status: dispatch.StatusSent},
		{Status: dispatch.StatusSent},
		{Status: dispatch.StatusFailed},
	})

	if got := counterValue(t, reader, "payroll.recipient.sent"); got != 2 {
		t.Errorf("sent = %d, want 2", got)
	}
	if got := counterValue(t, reader, "payroll.recipient.failed"); got != 1 {
		t.Errorf("failed = %d, want 1", got)
	}
}

func TestMetricsExtension_DefaultNoopSafe(t *testing.T) {
	e := observability.NewMetricsExtension()
	if err := e.OnRunAdmitted(context.Background(), newTestRun()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
