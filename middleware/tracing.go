package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/payroll/run"
)

// tracerName is the instrumentation scope name for payroll tracing.
const tracerName = "github.com/xraph/payroll"

// Tracing returns middleware that wraps an operation in an OpenTelemetry
// span. If no TracerProvider is configured globally, the default noop
// tracer is used and this middleware becomes a pass-through.
//
// Span attributes include: payroll.run.id, payroll.operation,
// payroll.actor. On error, the span status is set to codes.Error.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, r *run.Run, next Handler) error {
		ctx, span := tracer.Start(ctx, "payroll.operation.execute",
			trace.WithAttributes(
				attribute.String("payroll.run.id", r.ID.String()),
				attribute.String("payroll.operation", string(r.Operation)),
				attribute.Int64("payroll.actor", r.Actor),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		span.SetAttributes(attribute.String("payroll.run.state", string(r.State)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
