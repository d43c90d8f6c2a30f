package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/directory"
	"github.com/xraph/payroll/id"
	"github.com/xraph/payroll/pipeline"
	"github.com/xraph/payroll/run"
)

// DefaultManagerRole is the role whose users a firing iterates.
const DefaultManagerRole = "manager"

// Errors returned when managing entries.
var (
	ErrEntryExists   = errors.New("payroll: schedule entry already exists")
	ErrEntryNotFound = errors.New("payroll: schedule entry not found")
)

// Runner executes a pipeline operation. *pipeline.Orchestrator satisfies it.
type Runner interface {
	Execute(ctx context.Context, op run.Operation, actor int64, key string) (*pipeline.Outcome, error)
}

// Managers lists users by role. directory.Directory satisfies it.
type Managers interface {
	UsersByRole(ctx context.Context, role string) ([]*directory.User, error)
}

// Emitter emits cron lifecycle events.
// ext.Registry satisfies this interface via EmitCronFired.
type Emitter interface {
	EmitCronFired(ctx context.Context, entryName string, r *run.Run)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithManagerRole overrides the role iterated on each firing.
func WithManagerRole(role string) Option {
	return func(s *Scheduler) { s.role = role }
}

// WithClock overrides the time source used to derive the period key.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithEmitter sets the lifecycle emitter.
func WithEmitter(e Emitter) Option {
	return func(s *Scheduler) { s.emitter = e }
}

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

// Key returns the idempotency key of entryName for the period containing
// now. Every firing within one month shares the key, so the guard admits
// at most one run per manager and month however many instances fire.
func Key(entryName string, now time.Time) string {
	return fmt.Sprintf("cron:%s:%s", entryName, directory.MonthOf(now).Format("2006-01"))
}

type scheduled struct {
	entry  *Entry
	sched  cronlib.Schedule
	cronID cronlib.EntryID
}

// Scheduler fires periodic generation runs.
type Scheduler struct {
	runner   Runner
	managers Managers
	emitter  Emitter
	logger   *slog.Logger
	role     string
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*scheduled
	cron    *cronlib.Cron
	running bool
}

// NewScheduler creates a Scheduler.
func NewScheduler(runner Runner, managers Managers, opts ...Option) *Scheduler {
	s := &Scheduler{
		runner:   runner,
		managers: managers,
		logger:   slog.Default(),
		role:     DefaultManagerRole,
		now:      func() time.Time { return time.Now().UTC() },
		entries:  make(map[string]*scheduled),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = cronlib.New(
		cronlib.WithParser(cronParser),
		cronlib.WithLocation(time.UTC),
		cronlib.WithLogger(cronLogger{s.logger}),
		cronlib.WithChain(cronlib.Recover(cronLogger{s.logger})),
	)
	return s
}

// Add registers an entry. An empty schedule is rejected; callers skip
// disabled schedules instead of adding them.
func (s *Scheduler) Add(name, schedule string, op run.Operation) (*Entry, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("payroll: schedule %s: unknown operation %q", name, op)
	}
	sched, err := ParseSchedule(schedule)
	if err != nil {
		return nil, fmt.Errorf("payroll: schedule %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryExists, name)
	}
	next := sched.Next(s.now())
	e := &Entry{
		ID:        id.NewScheduleID(),
		Name:      name,
		Schedule:  schedule,
		Operation: op,
		Enabled:   true,
		NextRunAt: &next,
	}
	sc := &scheduled{entry: e, sched: sched}
	sc.cronID = s.cron.Schedule(sched, cronlib.FuncJob(func() { s.tick(name) }))
	s.entries[name] = sc
	return copyEntry(e), nil
}

// SetEnabled enables or disables an entry. A disabled entry stays
// registered but does not fire on schedule.
func (s *Scheduler) SetEnabled(name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	sc.entry.Enabled = enabled
	return nil
}

// Entries returns a snapshot of every entry ordered by name.
func (s *Scheduler) Entries() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Entry, 0, len(s.entries))
	for _, sc := range s.entries {
		out = append(out, copyEntry(sc.entry))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Start begins firing entries on their schedules.
func (s *Scheduler) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("cron scheduler started", slog.Int("entries", len(s.entries)))
	return nil
}

// Stop halts scheduling and waits for firings in progress, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("cron scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tick is the scheduled callback for one entry.
func (s *Scheduler) tick(name string) {
	s.mu.Lock()
	sc, ok := s.entries[name]
	enabled := ok && sc.entry.Enabled
	s.mu.Unlock()
	if !enabled {
		return
	}
	if _, err := s.Fire(context.Background(), name); err != nil {
		s.logger.Error("cron firing failed",
			slog.String("cron_name", name),
			slog.String("error", err.Error()),
		)
	}
}

// Fire runs an entry now, once per manager, regardless of its schedule or
// enabled flag. Managers already handled this period are skipped by the
// idempotency guard.
func (s *Scheduler) Fire(ctx context.Context, name string) (*FireReport, error) {
	s.mu.Lock()
	sc, ok := s.entries[name]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	op := sc.entry.Operation
	s.mu.Unlock()

	now := s.now()
	rep := &FireReport{Entry: name, Key: Key(name, now)}

	managers, err := s.managers.UsersByRole(ctx, s.role)
	if err != nil {
		return nil, payroll.NewResourceError("directory", err)
	}

	for _, m := range managers {
		out, err := s.runner.Execute(ctx, op, m.ID, rep.Key)
		switch {
		case errors.Is(err, payroll.ErrDuplicateKey):
			rep.Skipped++
			s.logger.Debug("cron run already done for period",
				slog.String("cron_name", name),
				slog.Int64("manager", m.ID),
			)
			continue
		case err != nil:
			rep.Failed++
			s.logger.Error("cron run not started",
				slog.String("cron_name", name),
				slog.Int64("manager", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		if out.Cached {
			rep.Skipped++
			continue
		}
		if out.Status == pipeline.StatusFailed {
			rep.Failed++
		} else {
			rep.Started++
		}
		if s.emitter != nil {
			s.emitter.EmitCronFired(ctx, name, out.Run)
		}
	}

	s.mu.Lock()
	sc.entry.LastRunAt = &now
	next := sc.sched.Next(now)
	sc.entry.NextRunAt = &next
	s.mu.Unlock()

	s.logger.Info("cron fired",
		slog.String("cron_name", name),
		slog.String("key", rep.Key),
		slog.Int("started", rep.Started),
		slog.Int("skipped", rep.Skipped),
		slog.Int("failed", rep.Failed),
	)
	return rep, nil
}

func copyEntry(e *Entry) *Entry {
	cp := *e
	return &cp
}

// cronLogger routes robfig/cron's logging to slog.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append([]any{slog.String("error", err.Error())}, keysAndValues...)...)
}
