package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/cache"
	"github.com/xraph/payroll/directory"
	"github.com/xraph/payroll/dispatch"
	"github.com/xraph/payroll/document"
	"github.com/xraph/payroll/ext"
	"github.com/xraph/payroll/id"
	"github.com/xraph/payroll/idempotency"
	"github.com/xraph/payroll/middleware"
	"github.com/xraph/payroll/notify"
	"github.com/xraph/payroll/run"
)

// handler is the body of one operation. A non-nil error aborts the
// operation; body may then be nil.
type handler func(ctx context.Context, r *run.Run) (body any, status Status, err error)

// Orchestrator runs pipeline operations.
type Orchestrator struct {
	config  payroll.Config
	logger  *slog.Logger
	now     func() time.Time
	dir     directory.Directory
	builder document.Builder
	sender  notify.Sender

	keyStore      idempotency.Store
	resultStore   cache.Store
	artifactStore artifact.Store
	runStore      run.Store

	guard      *idempotency.Guard
	cache      *cache.Cache
	archive    *artifact.Archive
	engine     *dispatch.Engine
	extensions *ext.Registry
	mw         middleware.Middleware

	pendingExts []ext.Extension
	extraMW     []middleware.Middleware
	handlers    map[run.Operation]handler
}

// New creates an Orchestrator. A store must be supplied with WithStore,
// or with both WithKeyStore and WithArtifactStore.
func New(dir directory.Directory, builder document.Builder, sender notify.Sender, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		config:  payroll.DefaultConfig(),
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
		dir:     dir,
		builder: builder,
		sender:  sender,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.keyStore == nil || o.resultStore == nil || o.artifactStore == nil {
		return nil, payroll.ErrNoStore
	}
	if dir == nil || builder == nil || sender == nil {
		return nil, errors.New("payroll: directory, builder and sender are required")
	}

	o.guard = idempotency.NewGuard(o.keyStore,
		idempotency.WithRetention(o.config.KeyRetention),
		idempotency.WithLogger(o.logger),
		idempotency.WithClock(o.now),
	)
	o.cache = cache.New(o.resultStore,
		cache.WithTTL(o.config.CacheTTL),
		cache.WithLogger(o.logger),
		cache.WithClock(o.now),
	)
	o.archive = artifact.NewArchive(o.artifactStore,
		artifact.WithLogger(o.logger),
		artifact.WithClock(o.now),
	)
	o.engine = dispatch.New(
		dispatch.WithConcurrency(o.config.Concurrency),
		dispatch.WithSendTimeout(o.config.SendTimeout),
		dispatch.WithRateLimit(o.config.SendRate, o.config.Concurrency),
		dispatch.WithLogger(o.logger),
	)

	o.extensions = ext.NewRegistry(o.logger)
	for _, e := range o.pendingExts {
		o.extensions.Register(e)
	}

	chain := []middleware.Middleware{
		middleware.Recover(o.logger),
		middleware.Tracing(),
		middleware.Metrics(),
		middleware.Scope(),
		middleware.Logging(o.logger),
		middleware.Timeout(o.config.OperationTimeout, o.logger),
	}
	o.mw = middleware.Chain(append(chain, o.extraMW...)...)

	o.handlers = map[run.Operation]handler{
		run.OpCreateAggregateReport:     o.createAggregateReport,
		run.OpCreateIndividualDocuments: o.createIndividualDocuments,
		run.OpSendAggregateReport:       o.sendAggregateReport,
		run.OpSendIndividualDocuments:   o.sendIndividualDocuments,
	}
	return o, nil
}

// Extensions returns the lifecycle registry.
func (o *Orchestrator) Extensions() *ext.Registry { return o.extensions }

// Archive returns the artifact archive.
func (o *Orchestrator) Archive() *artifact.Archive { return o.archive }

// Config returns the active configuration.
func (o *Orchestrator) Config() payroll.Config { return o.config }

// CreateAggregateReport builds and archives the actor's salary report.
func (o *Orchestrator) CreateAggregateReport(ctx context.Context, actor int64, key string) (*Outcome, error) {
	return o.Execute(ctx, run.OpCreateAggregateReport, actor, key)
}

// CreateIndividualDocuments builds and archives a slip per employee of
// the actor.
func (o *Orchestrator) CreateIndividualDocuments(ctx context.Context, actor int64, key string) (*Outcome, error) {
	return o.Execute(ctx, run.OpCreateIndividualDocuments, actor, key)
}

// SendAggregateReport emails the actor's latest archived salary report.
func (o *Orchestrator) SendAggregateReport(ctx context.Context, actor int64, key string) (*Outcome, error) {
	return o.Execute(ctx, run.OpSendAggregateReport, actor, key)
}

// SendIndividualDocuments builds, archives and emails a slip per
// employee of the actor.
func (o *Orchestrator) SendIndividualDocuments(ctx context.Context, actor int64, key string) (*Outcome, error) {
	return o.Execute(ctx, run.OpSendIndividualDocuments, actor, key)
}

// Execute runs op for actor under the idempotency key. It returns
// payroll.ErrMissingKey or payroll.ErrDuplicateKey for client errors and
// a *payroll.ResourceError when the guard's store is unavailable. Every
// other result, including failures, is an Outcome.
func (o *Orchestrator) Execute(ctx context.Context, op run.Operation, actor int64, key string) (*Outcome, error) {
	h, ok := o.handlers[op]
	if !ok {
		return nil, fmt.Errorf("payroll: unknown operation %q", op)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, payroll.ErrMissingKey
	}

	r := run.New(op, actor, key)
	sc := r.Scope()

	if res, hit := o.cache.Get(ctx, sc, key); hit {
		o.logger.Debug("result cache hit",
			slog.String("operation", string(op)),
			slog.Int64("actor", actor),
		)
		o.advance(r, run.StateCacheHit)
		o.extensions.EmitRunCacheHit(ctx, r)
		o.advance(r, run.StateCompleted)
		o.saveRun(ctx, r)
		return &Outcome{RunID: r.ID, Operation: op, Status: Status(res.Status), Body: res.Payload, Cached: true, Run: r}, nil
	}

	if err := o.guard.Admit(ctx, sc, key); err != nil {
		if errors.Is(err, payroll.ErrDuplicateKey) {
			o.advance(r, run.StateRejected)
			o.extensions.EmitRunRejected(ctx, r, err)
		} else {
			r.Fail(err)
		}
		o.saveRun(ctx, r)
		return nil, err
	}
	o.advance(r, run.StateAdmitted)
	o.extensions.EmitRunAdmitted(ctx, r)

	var (
		body   any
		status Status
	)
	runErr := o.mw(ctx, r, func(ctx context.Context) error {
		var err error
		body, status, err = h(ctx, r)
		return err
	})

	out := &Outcome{RunID: r.ID, Operation: op, Status: status, Run: r}
	if runErr != nil {
		out.Status = StatusFailed
		out.Err = runErr
		if body == nil {
			body = failureBody(op, runErr)
		}
		r.Fail(runErr)
		o.extensions.EmitRunFailed(ctx, r, runErr)
	} else {
		o.advance(r, run.StateCompleted)
		o.extensions.EmitRunCompleted(ctx, r, r.Elapsed())
	}

	payload, err := json.Marshal(body)
	if err != nil {
		// Result types are plain structs; this only trips on a programming error.
		return nil, fmt.Errorf("payroll: encode %s result: %w", op, err)
	}
	out.Body = payload

	// The request context may already be cancelled; the result is still kept.
	detached := context.WithoutCancel(ctx)
	o.cache.Put(detached, sc, key, string(out.Status), payload)
	o.saveRun(detached, r)
	return out, nil
}

// Run returns a recorded run.
func (o *Orchestrator) Run(ctx context.Context, runID id.RunID) (*run.Run, error) {
	if o.runStore == nil {
		return nil, payroll.ErrRunNotFound
	}
	return o.runStore.GetRun(ctx, runID)
}

// Runs lists recorded runs.
func (o *Orchestrator) Runs(ctx context.Context, opts run.ListOpts) ([]*run.Run, error) {
	if o.runStore == nil {
		return nil, nil
	}
	return o.runStore.ListRuns(ctx, opts)
}

// Latest returns the newest archived artifact of prefix.
func (o *Orchestrator) Latest(ctx context.Context, prefix string) (*artifact.Artifact, error) {
	return o.archive.Latest(ctx, prefix)
}

// Shutdown notifies extensions that the process is stopping.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.extensions.EmitShutdown(ctx)
}

// advance moves r forward. Handlers only request legal edges, so a
// rejected transition is logged rather than returned.
func (o *Orchestrator) advance(r *run.Run, to run.State) {
	if err := r.Advance(to); err != nil {
		o.logger.Error("run state transition rejected",
			slog.String("run_id", r.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (o *Orchestrator) saveRun(ctx context.Context, r *run.Run) {
	if o.runStore == nil {
		return
	}
	if err := o.runStore.SaveRun(ctx, r); err != nil {
		o.logger.Warn("run record not saved",
			slog.String("run_id", r.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// period is the salary month documents are built for.
func (o *Orchestrator) period() time.Time {
	return directory.MonthOf(o.now())
}

// employees resolves the actor's employee set.
func (o *Orchestrator) employees(ctx context.Context, actor int64) ([]*directory.Employee, error) {
	emps, err := o.dir.EmployeesOf(ctx, actor)
	if err != nil {
		return nil, payroll.NewResourceError("directory", err)
	}
	return emps, nil
}

// forEach runs fn for 0..n-1 on at most Concurrency goroutines.
func (o *Orchestrator) forEach(n int, fn func(i int)) {
	var g errgroup.Group
	g.SetLimit(max(o.config.Concurrency, 1))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}
