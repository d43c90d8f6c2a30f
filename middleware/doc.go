// Package middleware provides composable middleware for pipeline
// operations.
//
// A [Middleware] wraps the body of one operation run. Middleware are
// composed with [Chain] and applied right-to-left: the first middleware
// in the slice is the outermost wrapper.
//
//	chain := middleware.Chain(
//	    middleware.Recover(logger),
//	    middleware.Tracing(),
//	    middleware.Metrics(),
//	    middleware.Logging(logger),
//	    middleware.Timeout(cfg.OperationTimeout, logger),
//	)
//
// # Built-in Middleware
//
//   - [Recover] catches panics and converts them to errors
//   - [Tracing] wraps the operation in an OpenTelemetry span
//   - [Metrics] records duration and outcome counters
//   - [Logging] logs start, completion and failure
//   - [Scope] attaches the (operation, actor) scope to the context
//   - [Timeout] bounds the whole operation
package middleware
