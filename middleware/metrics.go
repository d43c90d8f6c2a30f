package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/payroll/run"
)

// meterName is the instrumentation scope name for payroll metrics.
const meterName = "github.com/xraph/payroll"

// Metrics returns middleware that records per-operation metrics using
// the global OTel MeterProvider.
//
// Instruments:
//   - payroll.operation.duration (Float64Histogram): seconds, with
//     attributes operation and status ("ok" or "error")
//   - payroll.operation.executions (Int64Counter): total executions with
//     the same attributes
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// On error the OTel API returns noop instruments.
	duration, _ := meter.Float64Histogram(
		"payroll.operation.duration",
		metric.WithDescription("Duration of pipeline operations in seconds"),
		metric.WithUnit("s"),
	)
	executions, _ := meter.Int64Counter(
		"payroll.operation.executions",
		metric.WithDescription("Total number of pipeline operations"),
		metric.WithUnit("{execution}"),
	)

	return func(ctx context.Context, r *run.Run, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("operation", string(r.Operation)),
			attribute.String("status", status),
		)
		duration.Record(ctx, elapsed, attrs)
		executions.Add(ctx, 1, attrs)

		return err
	}
}
