// Package api exposes the payroll operations over HTTP with gin.
//
// The four boundary operations are POST routes. The caller identifies
// itself with the X-Actor-ID header and names the request with the
// Idempotency-Key header; a replayed key returns the stored response
// with Idempotent-Replayed set.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/cron"
	"github.com/xraph/payroll/directory"
	"github.com/xraph/payroll/document"
	"github.com/xraph/payroll/id"
	"github.com/xraph/payroll/pipeline"
	"github.com/xraph/payroll/run"
)

// Request headers.
const (
	HeaderActorID        = "X-Actor-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
	HeaderRunID          = "X-Run-ID"
)

// Pipeline is the subset of *pipeline.Orchestrator served over HTTP.
type Pipeline interface {
	Execute(ctx context.Context, op run.Operation, actor int64, key string) (*pipeline.Outcome, error)
	BuildSlip(ctx context.Context, employeeID int64) (*document.Document, *directory.Employee, error)
	Latest(ctx context.Context, prefix string) (*artifact.Artifact, error)
	Run(ctx context.Context, runID id.RunID) (*run.Run, error)
	Runs(ctx context.Context, opts run.ListOpts) ([]*run.Run, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Scheduler is the subset of *cron.Scheduler served over HTTP.
type Scheduler interface {
	Entries() []*cron.Entry
	SetEnabled(name string, enabled bool) error
	Fire(ctx context.Context, name string) (*cron.FireReport, error)
}

// Option configures the API.
type Option func(*API)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) { a.logger = l }
}

// WithScheduler exposes cron entries under /v1/crons.
func WithScheduler(s Scheduler) Option {
	return func(a *API) { a.sched = s }
}

// WithHealthCheck adds a backend ping to /healthz.
func WithHealthCheck(p Pinger) Option {
	return func(a *API) { a.pingers = append(a.pingers, p) }
}

// API wires the gin handlers together for the payroll pipeline.
type API struct {
	p       Pipeline
	sched   Scheduler
	pingers []Pinger
	logger  *slog.Logger
}

// New creates an API serving p.
func New(p Pipeline, opts ...Option) *API {
	a := &API{p: p, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns a gin engine with recovery, request logging and every
// route registered.
func (a *API) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), a.requestLogger())
	a.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers all payroll routes on r.
func (a *API) RegisterRoutes(r gin.IRouter) {
	r.GET("/healthz", a.health)

	v1 := r.Group("/v1")
	a.registerOperationRoutes(v1)
	a.registerQueryRoutes(v1)
	if a.sched != nil {
		a.registerCronRoutes(v1)
	}
}

// registerOperationRoutes registers the idempotency-gated operations.
func (a *API) registerOperationRoutes(g *gin.RouterGroup) {
	g.POST("/reports", a.operation(run.OpCreateAggregateReport))
	g.POST("/reports/send", a.operation(run.OpSendAggregateReport))
	g.POST("/slips", a.operation(run.OpCreateIndividualDocuments))
	g.POST("/slips/send", a.operation(run.OpSendIndividualDocuments))
}

// registerQueryRoutes registers read-only routes.
func (a *API) registerQueryRoutes(g *gin.RouterGroup) {
	g.GET("/artifacts/latest", a.latestArtifact)
	g.GET("/employees/:employeeId/slip", a.employeeSlip)
	g.GET("/runs", a.listRuns)
	g.GET("/runs/:runId", a.getRun)
}

// registerCronRoutes registers schedule management routes.
func (a *API) registerCronRoutes(g *gin.RouterGroup) {
	g.GET("/crons", a.listCrons)
	g.POST("/crons/:name/fire", a.fireCron)
	g.POST("/crons/:name/enable", a.enableCron)
	g.POST("/crons/:name/disable", a.disableCron)
}

func (a *API) health(c *gin.Context) {
	for _, p := range a.pingers {
		if err := p.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.logger.Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}
