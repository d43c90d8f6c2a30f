package pipeline

import (
	"log/slog"
	"time"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/ext"
	"github.com/xraph/payroll/middleware"
	"github.com/xraph/payroll/run"
	"github.com/xraph/payroll/store"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore uses s for idempotency keys, cached results, artifacts and
// run records.
func WithStore(s store.Store) Option {
	return func(o *Orchestrator) {
		o.keyStore = s
		o.resultStore = s
		o.artifactStore = s
		o.runStore = s
	}
}

// WithKeyStore moves idempotency keys and cached results to s, typically
// Redis, while artifacts stay in the main store.
func WithKeyStore(s store.KeyStore) Option {
	return func(o *Orchestrator) {
		o.keyStore = s
		o.resultStore = s
	}
}

// WithArtifactStore overrides the artifact backend.
func WithArtifactStore(s artifact.Store) Option {
	return func(o *Orchestrator) { o.artifactStore = s }
}

// WithRunStore overrides where run records are kept. Nil disables them.
func WithRunStore(s run.Store) Option {
	return func(o *Orchestrator) { o.runStore = s }
}

// WithConfig sets the pipeline configuration.
func WithConfig(cfg payroll.Config) Option {
	return func(o *Orchestrator) { o.config = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithExtension registers a lifecycle extension.
func WithExtension(e ext.Extension) Option {
	return func(o *Orchestrator) { o.pendingExts = append(o.pendingExts, e) }
}

// WithMiddleware appends middleware inside the built-in chain.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *Orchestrator) { o.extraMW = append(o.extraMW, mws...) }
}

// WithClock overrides the time source used for the salary period and for
// key and cache expiry.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}
