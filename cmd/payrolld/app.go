package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	audithook "github.com/xraph/payroll/audit_hook"
	"github.com/xraph/payroll/cron"
	"github.com/xraph/payroll/directory"
	"github.com/xraph/payroll/document"
	"github.com/xraph/payroll/notify"
	"github.com/xraph/payroll/observability"
	"github.com/xraph/payroll/pipeline"
	"github.com/xraph/payroll/run"
	"github.com/xraph/payroll/store"
	"github.com/xraph/payroll/store/memory"
	"github.com/xraph/payroll/store/mongo"
	"github.com/xraph/payroll/store/postgres"
	"github.com/xraph/payroll/store/redis"
	"github.com/xraph/payroll/store/sqlite"
)

// Names of the built-in schedule entries.
const (
	entrySlips   = "monthly-slips"
	entryReports = "monthly-reports"
)

// app holds the wired components of one payrolld process.
type app struct {
	cfg    *Config
	logger *slog.Logger
	store  store.Store
	keys   store.KeyStore
	dir    directory.Directory
	orch   *pipeline.Orchestrator
	sched  *cron.Scheduler
}

// directoryBackend is a directory that also serves salary records.
type directoryBackend interface {
	directory.Directory
	directory.Salaries
}

// newApp opens the configured backends and builds the pipeline.
func newApp(ctx context.Context, cfg *Config) (*app, error) {
	a := &app{cfg: cfg, logger: cfg.Logger()}

	st, err := openStore(ctx, cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.store = st

	dir, err := openDirectory(cfg, st)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.dir = dir

	opts := []pipeline.Option{
		pipeline.WithStore(st),
		pipeline.WithConfig(cfg.PipelineConfig()),
		pipeline.WithLogger(a.logger),
		pipeline.WithExtension(observability.NewMetricsExtension()),
	}
	if cfg.Audit {
		opts = append(opts, pipeline.WithExtension(
			audithook.New(audithook.NewSlogRecorder(a.logger.With(slog.String("component", "audit"))),
				audithook.WithLogger(a.logger)),
		))
	}
	if cfg.Redis.Addr != "" {
		a.keys = redis.New(goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}), redis.WithLogger(a.logger))
		opts = append(opts, pipeline.WithKeyStore(a.keys))
	}

	orch, err := pipeline.New(dir, document.NewTabular(dir, cfg.Company), newSender(cfg, a.logger), opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.orch = orch

	a.sched = cron.NewScheduler(orch, dir,
		cron.WithLogger(a.logger),
		cron.WithEmitter(orch.Extensions()),
	)
	if err := a.addEntries(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) addEntries() error {
	pc := a.cfg.PipelineConfig()
	entries := []struct {
		name, schedule string
		op             run.Operation
	}{
		{entrySlips, pc.SlipSchedule, run.OpCreateIndividualDocuments},
		{entryReports, pc.ReportSchedule, run.OpCreateAggregateReport},
	}
	for _, e := range entries {
		if e.schedule == "" {
			continue
		}
		if _, err := a.sched.Add(e.name, e.schedule, e.op); err != nil {
			return err
		}
	}
	return nil
}

// Close releases every backend connection.
func (a *app) Close() {
	if a.keys != nil {
		if err := a.keys.Close(); err != nil {
			a.logger.Warn("close key store", slog.String("error", err.Error()))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close store", slog.String("error", err.Error()))
		}
	}
}

func openStore(ctx context.Context, cfg *Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return memory.New(), nil
	case "sqlite", "":
		s, err := sqlite.Open(cfg.Store.DSN, sqlite.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := postgres.New(ctx, cfg.Store.DSN, postgres.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "mongo":
		s, err := mongo.Open(ctx, cfg.Store.DSN, cfg.Store.Database, mongo.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func openDirectory(cfg *Config, st store.Store) (directoryBackend, error) {
	if cfg.Directory != "" {
		d, err := directory.Load(cfg.Directory)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	if d, ok := st.(directoryBackend); ok {
		return d, nil
	}
	return nil, errors.New("no directory: set directory to a YAML file or use the postgres store")
}

func newSender(cfg *Config, logger *slog.Logger) notify.Sender {
	if cfg.SMTP.Host == "" {
		logger.Warn("smtp host not set, messages are logged instead of sent")
		return notify.Log(logger)
	}
	return notify.NewSMTP(cfg.SMTP)
}
