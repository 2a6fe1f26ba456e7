package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hakyung/xbots/internal/api"
	"github.com/hakyung/xbots/internal/bots"
	"github.com/hakyung/xbots/internal/scheduler"
)

var serveFlags struct {
	noScheduler bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the cron endpoints and run the daily schedule",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveFlags.noScheduler, "no-scheduler", false, "Only serve HTTP; rely on an external cron")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	g, ctx := errgroup.WithContext(ctx)

	srv := &api.Server{
		Runner:     a.runner,
		DB:         a.db,
		Metrics:    a.metrics,
		Jobs:       cfg.Schedule.Jobs,
		Addr:       cfg.Server.Addr,
		CronSecret: cfg.Server.CronSecret,
		RateLimit:  cfg.Server.RateLimit,
	}
	g.Go(func() error { return srv.ListenAndServe(ctx) })

	if cfg.Events.Watch {
		g.Go(func() error { return a.events.Watch(ctx) })
	}

	if cfg.Schedule.Enabled && !serveFlags.noScheduler {
		jobs, err := scheduler.JobsFromConfig(cfg.Schedule.Jobs)
		if err != nil {
			return err
		}
		sched := &scheduler.Scheduler{
			Jobs: jobs,
			Meta: a.db,
			Fire: func(ctx context.Context, job scheduler.Job) {
				results := a.runner.RunBatch(ctx, job.Bots, bots.RunOptions{})
				logBatch(job.Name, results)
			},
		}
		g.Go(func() error {
			if err := sched.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		slog.Info("in-process scheduler off; waiting for cron triggers")
	}

	err = g.Wait()
	slog.Info("xbots stopped")
	return err
}

func logBatch(job string, results []bots.Result) {
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	slog.Info("job finished", "job", job, "bots", len(results), "failed", failed)
}
