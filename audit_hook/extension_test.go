package audithook_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xraph/payroll/artifact"
	ah "github.com/xraph/payroll/audit_hook"
	"github.com/xraph/payroll/dispatch"
	"github.com/xraph/payroll/ext"
	"github.com/xraph/payroll/id"
	"github.com/xraph/payroll/run"
)

// ── Mock recorder ────────────────────────────────────

// mockRecorder captures audit events for verification.
type mockRecorder struct {
	mu     sync.Mutex
	events []*ah.AuditEvent
}

func (m *mockRecorder) Record(_ context.Context, evt *ah.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *mockRecorder) last() *ah.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func newTestRun() *run.Run {
	return run.New(run.OpSendIndividualDocuments, 7, "k-2026-03")
}

// ── Tests ────────────────────────────────────────────

func TestName(t *testing.T) {
	if got := ah.New(&mockRecorder{}).Name(); got != "audit-hook" {
		t.Errorf("Name() = %q", got)
	}
}

func TestRunHooks(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)
	ctx := context.Background()
	r := newTestRun()

	tests := []struct {
		name     string
		fire     func() error
		action   string
		severity string
		outcome  string
	}{
		{"admitted", func() error { return e.OnRunAdmitted(ctx, r) },
			ah.ActionRunAdmitted, ah.SeverityInfo, ah.OutcomeSuccess},
		{"rejected", func() error { return e.OnRunRejected(ctx, r, errors.New("duplicate")) },
			ah.ActionRunRejected, ah.SeverityWarning, ah.OutcomeFailure},
		{"completed", func() error { return e.OnRunCompleted(ctx, r, 1500*time.Millisecond) },
			ah.ActionRunCompleted, ah.SeverityInfo, ah.OutcomeSuccess},
		{"failed", func() error { return e.OnRunFailed(ctx, r, errors.New("archive down")) },
			ah.ActionRunFailed, ah.SeverityCritical, ah.OutcomeFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fire(); err != nil {
				t.Fatalf("hook returned %v", err)
			}
			evt := rec.last()
			if evt.Action != tt.action || evt.Severity != tt.severity || evt.Outcome != tt.outcome {
				t.Errorf("event = %+v", evt)
			}
			if evt.ResourceID != r.ID.String() || evt.Resource != ah.ResourceRun {
				t.Errorf("resource = %s/%s", evt.Resource, evt.ResourceID)
			}
			if evt.Metadata["actor"] != int64(7) || evt.Metadata["key"] != "k-2026-03" {
				t.Errorf("metadata = %v", evt.Metadata)
			}
		})
	}

	if got := rec.events[3].Reason; got != "archive down" {
		t.Errorf("failed reason = %q", got)
	}
	if got := rec.events[2].Metadata["elapsed_ms"]; got != int64(1500) {
		t.Errorf("elapsed_ms = %v", got)
	}
}

func TestDeliveryHooks(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)
	ctx := context.Background()
	r := newTestRun()

	_ = e.OnRecipientSent(ctx, r, dispatch.Outcome{RecipientID: "E001", Address: "ion@example.com", Status: dispatch.StatusSent})
	evt := rec.last()
	if evt.Action != ah.ActionRecipientSent || evt.ResourceID != "E001" || evt.Metadata["address"] != "ion@example.com" {
		t.Errorf("sent event = %+v", evt)
	}

	_ = e.OnRecipientFailed(ctx, r, dispatch.Outcome{RecipientID: "E002", Error: "mailbox full"})
	evt = rec.last()
	if evt.Action != ah.ActionRecipientFailed || evt.Reason != "mailbox full" {
		t.Errorf("failed event = %+v", evt)
	}

	_ = e.OnDocumentRejected(ctx, r, "E003", errors.New("no salary record"))
	evt = rec.last()
	if evt.Resource != ah.ResourceEmployee || evt.ResourceID != "E003" || evt.Severity != ah.SeverityWarning {
		t.Errorf("rejected event = %+v", evt)
	}

	a := &artifact.Artifact{ID: id.NewArtifactID(), Prefix: "salary_slip_E001", Size: 42}
	_ = e.OnArtifactArchived(ctx, r, a)
	evt = rec.last()
	if evt.ResourceID != a.ID.String() || evt.Metadata["prefix"] != "salary_slip_E001" {
		t.Errorf("archived event = %+v", evt)
	}
}

func TestCronFired(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)

	_ = e.OnCronFired(context.Background(), "monthly-slips", newTestRun())
	evt := rec.last()
	if evt.Action != ah.ActionCronFired || evt.ResourceID != "monthly-slips" || evt.Category != ah.CategoryCron {
		t.Errorf("cron event = %+v", evt)
	}

	_ = e.OnCronFired(context.Background(), "monthly-slips", nil)
	if rec.count() != 2 {
		t.Errorf("nil run should still be recorded")
	}
}

func TestWithActions(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec, ah.WithActions(ah.ActionRunFailed))
	ctx := context.Background()
	r := newTestRun()

	_ = e.OnRunAdmitted(ctx, r)
	_ = e.OnRunCompleted(ctx, r, time.Second)
	_ = e.OnRunFailed(ctx, r, errors.New("boom"))

	if rec.count() != 1 || rec.last().Action != ah.ActionRunFailed {
		t.Errorf("events = %d, want only run.failed", rec.count())
	}
}

func TestRecorderError_DoesNotFailHook(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	failing := ah.RecorderFunc(func(context.Context, *ah.AuditEvent) error { return errors.New("backend down") })
	e := ah.New(failing, ah.WithLogger(logger))

	if err := e.OnRunAdmitted(context.Background(), newTestRun()); err != nil {
		t.Fatalf("hook returned %v", err)
	}
	if !strings.Contains(buf.String(), "backend down") {
		t.Errorf("recorder failure not logged: %s", buf.String())
	}
}

func TestSlogRecorder(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	e := ah.New(ah.NewSlogRecorder(logger))

	_ = e.OnRunFailed(context.Background(), newTestRun(), errors.New("boom"))
	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "action=run.failed") {
		t.Errorf("log output = %s", out)
	}
}

func TestRegistryDispatch(t *testing.T) {
	rec := &mockRecorder{}
	reg := ext.NewRegistry(slog.Default())
	reg.Register(ah.New(rec))

	reg.EmitRunAdmitted(context.Background(), newTestRun())
	if rec.count() != 1 {
		t.Errorf("registry delivered %d events, want 1", rec.count())
	}
}

func TestAllActions(t *testing.T) {
	if n := len(ah.AllActions()); n != 9 {
		t.Errorf("AllActions = %d, want 9", n)
	}
}
