// Package observability provides an OpenTelemetry metrics extension for
// the payroll pipeline. MetricsExtension implements lifecycle hooks to
// record counters for admissions, duplicate rejections, cache hits,
// archived artifacts and per-recipient deliveries.
//
// For per-operation tracing and duration metrics, see the middleware
// package: middleware.Tracing() and middleware.Metrics().
package observability
