// Package dispatch fans a delivery out to many recipients. Each recipient
// is resolved to an artifact and sent independently: a failure is recorded
// against that recipient and never aborts, delays or rolls back the
// others. Nothing is retried within one DispatchMany call.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/artifact"
)

// ErrSendTimeout is recorded when a send exceeds the per-send timeout.
var ErrSendTimeout = errors.New("payroll: send timed out")

// Status is the result of one recipient's delivery.
type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Recipient is one delivery target.
type Recipient struct {
	// ID identifies the recipient in results, such as an employee code.
	ID      string
	Name    string
	Address string
}

// Outcome is one recipient's delivery result.
type Outcome struct {
	RecipientID string `json:"recipient"`
	Address     string `json:"address,omitempty"`
	Status      Status `json:"status"`
	Error       string `json:"error,omitempty"`
	Err         error  `json:"-"`
}

// Result aggregates the outcomes of a batch in input order.
type Result struct {
	Outcomes   []Outcome `json:"outcomes"`
	SentCount  int       `json:"sent"`
	TotalCount int       `json:"total"`
}

// Failures returns the failed outcomes in input order.
func (r *Result) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// ResolveFunc finds the artifact to deliver to a recipient.
type ResolveFunc func(ctx context.Context, r Recipient) (*artifact.Artifact, error)

// SendFunc delivers art to r.
type SendFunc func(ctx context.Context, r Recipient, art *artifact.Artifact) error

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency sets how many recipients are processed at once. One
// processes them sequentially in input order.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.concurrency = n }
}

// WithSendTimeout bounds each send. Zero disables the bound.
func WithSendTimeout(d time.Duration) Option {
	return func(e *Engine) { e.sendTimeout = d }
}

// WithRateLimit caps sends per second across the engine. Zero disables it.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(e *Engine) {
		if perSecond <= 0 {
			e.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine runs recipient batches on a bounded pool.
type Engine struct {
	concurrency int
	sendTimeout time.Duration
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		concurrency: 4,
		sendTimeout: 30 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.concurrency < 1 {
		e.concurrency = 1
	}
	return e
}

// DispatchMany resolves and sends to every recipient. It returns
// payroll.ErrNoRecipients for an empty batch; otherwise the error is
// always nil and failures are itemized in the result.
func (e *Engine) DispatchMany(ctx context.Context, recipients []Recipient, resolve ResolveFunc, send SendFunc) (*Result, error) {
	if len(recipients) == 0 {
		return nil, payroll.ErrNoRecipients
	}

	outcomes := make([]Outcome, len(recipients))
	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for i, r := range recipients {
		g.Go(func() error {
			outcomes[i] = e.deliver(ctx, r, resolve, send)
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{Outcomes: outcomes, TotalCount: len(recipients)}
	for _, o := range outcomes {
		if o.Status == StatusSent {
			res.SentCount++
		}
	}

	e.logger.Info("dispatch finished",
		slog.Int("sent", res.SentCount),
		slog.Int("total", res.TotalCount),
	)
	return res, nil
}

func (e *Engine) deliver(ctx context.Context, r Recipient, resolve ResolveFunc, send SendFunc) (out Outcome) {
	out = Outcome{RecipientID: r.ID, Address: r.Address}

	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("dispatch panicked",
				slog.String("recipient", r.ID),
				slog.Any("panic", p),
				slog.String("stack", string(debug.Stack())),
			)
			out = failed(out, fmt.Errorf("panic while dispatching to %s: %v", r.ID, p))
		}
	}()

	art, err := resolve(ctx, r)
	if err != nil {
		return failed(out, err)
	}
	if art == nil {
		return failed(out, payroll.ErrArtifactNotFound)
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return failed(out, err)
		}
	}

	sendCtx := ctx
	if e.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, e.sendTimeout)
		defer cancel()
	}

	if err := e.sendBounded(sendCtx, r, art, send); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w after %s: %w", ErrSendTimeout, e.sendTimeout, err)
		}
		e.logger.Warn("send failed",
			slog.String("recipient", r.ID),
			slog.String("error", err.Error()),
		)
		return failed(out, err)
	}

	out.Status = StatusSent
	return out
}

// sendBounded runs send and returns when it finishes or ctx is done,
// whichever is first. A send that ignores ctx is abandoned at the deadline
// and its eventual result discarded.
func (e *Engine) sendBounded(ctx context.Context, r Recipient, art *artifact.Artifact, send SendFunc) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				e.logger.Error("send panicked",
					slog.String("recipient", r.ID),
					slog.Any("panic", p),
					slog.String("stack", string(debug.Stack())),
				)
				done <- fmt.Errorf("panic while dispatching to %s: %v", r.ID, p)
			}
		}()
		done <- send(ctx, r, art)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func failed(o Outcome, err error) Outcome {
	o.Status = StatusFailed
	o.Err = err
	o.Error = err.Error()
	if o.Error == "" {
		o.Error = "unknown error"
	}
	return o
}
