package middleware_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/payroll"
	mw "github.com/xraph/payroll/middleware"
	"github.com/xraph/payroll/run"
)

func newTestRun() *run.Run {
	return run.New(run.OpSendIndividualDocuments, 42, "key-1")
}

func traced(t *testing.T, r *run.Run, h mw.Handler) (sdktrace.ReadOnlySpan, error) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	err := mw.TracingWithTracer(tp.Tracer("test"))(context.Background(), r, h)

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	return spans[0], err
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range s.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTracing_RunIdentity(t *testing.T) {
	tests := []struct {
		op    run.Operation
		actor int64
	}{
		{run.OpCreateAggregateReport, 1},
		{run.OpCreateIndividualDocuments, 7},
		{run.OpSendAggregateReport, 1},
		{run.OpSendIndividualDocuments, 42},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			r := run.New(tt.op, tt.actor, "k")
			span, _ := traced(t, r, func(context.Context) error { return nil })

			if span.Name() != "payroll.operation.execute" {
				t.Errorf("span name = %q", span.Name())
			}
			attrs := spanAttrs(span)
			if got := attrs["payroll.run.id"].AsString(); got != r.ID.String() {
				t.Errorf("run id = %q, want %q", got, r.ID)
			}
			if got := attrs["payroll.operation"].AsString(); got != string(tt.op) {
				t.Errorf("operation = %q, want %q", got, tt.op)
			}
			if got := attrs["payroll.actor"].AsInt64(); got != tt.actor {
				t.Errorf("actor = %d, want %d", got, tt.actor)
			}
		})
	}
}

func TestTracing_RecordsFinalRunState(t *testing.T) {
	r := newTestRun()
	span, err := traced(t, r, func(context.Context) error {
		if err := r.Advance(run.StateAdmitted); err != nil {
			return err
		}
		if err := r.Advance(run.StateDispatching); err != nil {
			return err
		}
		return r.Advance(run.StateCompleted)
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if got := spanAttrs(span)["payroll.run.state"].AsString(); got != "completed" {
		t.Errorf("run state = %q, want completed", got)
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", span.Status().Code)
	}
}

func TestTracing_FailedRun(t *testing.T) {
	r := run.New(run.OpCreateAggregateReport, 3, "k")
	cause := payroll.NewResourceError("archive", payroll.ErrStoreUnavailable)

	span, err := traced(t, r, func(context.Context) error {
		_ = r.Advance(run.StateAdmitted)
		r.Fail(cause)
		return cause
	})
	if !errors.Is(err, payroll.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want the handler's error", err)
	}
	if got := spanAttrs(span)["payroll.run.state"].AsString(); got != "failed" {
		t.Errorf("run state = %q, want failed", got)
	}
	if span.Status().Code != codes.Error || span.Status().Description != cause.Error() {
		t.Errorf("status = %+v, want Error %q", span.Status(), cause.Error())
	}

	found := false
	for _, ev := range span.Events() {
		if ev.Name == "exception" {
			found = true
		}
	}
	if !found {
		t.Error("no exception event recorded")
	}
}

func TestTracing_HandlerSeesSpan(t *testing.T) {
	var inner trace.SpanContext
	span, _ := traced(t, newTestRun(), func(ctx context.Context) error {
		inner = trace.SpanFromContext(ctx).SpanContext()
		return nil
	})
	if !inner.IsValid() || inner.SpanID() != span.SpanContext().SpanID() {
		t.Errorf("handler span = %v, want %v", inner.SpanID(), span.SpanContext().SpanID())
	}
}

func TestTracing_GlobalProviderSafe(t *testing.T) {
	called := false
	err := mw.Tracing()(context.Background(), newTestRun(), func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("err = %v called = %v", err, called)
	}
}
