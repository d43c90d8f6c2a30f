package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/payroll/api"
	"github.com/xraph/payroll/run"
)

const shutdownTimeout = 30 * time.Second

type configLoader func() (*Config, error)

// setup loads the config, opens the app and migrates the store.
func setup(ctx context.Context, load configLoader) (*app, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := a.store.Migrate(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return a, nil
}

func serveCmd(load configLoader) *cobra.Command {
	var noCron bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and fire scheduled runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx, load)
			if err != nil {
				return err
			}
			defer a.Close()

			apiOpts := []api.Option{api.WithLogger(a.logger), api.WithHealthCheck(a.store)}
			if a.keys != nil {
				apiOpts = append(apiOpts, api.WithHealthCheck(a.keys))
			}
			if !noCron {
				apiOpts = append(apiOpts, api.WithScheduler(a.sched))
				if err := a.sched.Start(ctx); err != nil {
					return err
				}
			}

			srv := &http.Server{
				Addr:              a.cfg.Listen,
				Handler:           api.New(a.orch, apiOpts...).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				a.logger.Info("payrolld listening", slog.String("addr", srv.Addr))
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("http shutdown", slog.String("error", err.Error()))
			}
			if err := a.sched.Stop(shutdownCtx); err != nil {
				a.logger.Warn("cron shutdown", slog.String("error", err.Error()))
			}
			a.orch.Shutdown(shutdownCtx)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noCron, "no-cron", false, "serve the API without firing schedules")
	return cmd
}

func runCmd(load configLoader) *cobra.Command {
	var entry string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fire a schedule entry now",
		Long: `Fire a schedule entry for every manager immediately.

Managers already handled in the current month are skipped, so running
the same entry twice in one month is safe.

Examples:
  payrolld run --entry monthly-slips
  payrolld run --entry monthly-reports`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context(), load)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.sched.Fire(cmd.Context(), entry)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().StringVar(&entry, "entry", entrySlips, "schedule entry name")
	return cmd
}

func execCmd(load configLoader) *cobra.Command {
	var (
		op    string
		actor int64
		key   string
	)

	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Run one operation for one actor",
		Long: `Run one pipeline operation under an idempotency key and print its
result body.

Examples:
  payrolld exec --op create_individual_documents --actor 1 --key 2026-03
  payrolld exec --op send_aggregate_report --actor 1 --key 2026-03-resend`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context(), load)
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.orch.Execute(cmd.Context(), run.Operation(op), actor, key)
			if err != nil {
				return err
			}
			a.logger.Info("operation finished",
				slog.String("run_id", out.RunID.String()),
				slog.String("status", string(out.Status)),
				slog.Bool("cached", out.Cached),
			)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out.Body))
			return err
		},
	}
	cmd.Flags().StringVar(&op, "op", "", "operation name")
	cmd.Flags().Int64Var(&actor, "actor", 0, "acting manager id")
	cmd.Flags().StringVar(&key, "key", "", "idempotency key")
	_ = cmd.MarkFlagRequired("op")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func cleanupCmd(load configLoader) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete old artifacts and expired keys and results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context(), load)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.orch.Cleanup(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "delete artifacts created more than this long ago (0 keeps all)")
	return cmd
}

func migrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply store migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context(), load)
			if err != nil {
				return err
			}
			a.Close()
			a.logger.Info("store migrated", slog.String("backend", a.cfg.Store.Backend))
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
