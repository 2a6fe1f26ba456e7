package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hakyung/xbots/internal/api"
	"github.com/hakyung/xbots/internal/bots"
	"github.com/hakyung/xbots/internal/remote"
)

var triggerFlags struct {
	url    string
	secret string
	bot    bool
	dryRun bool
	force  bool
	wait   time.Duration
}

var triggerCmd = &cobra.Command{
	Use:   "trigger <job>",
	Short: "Trigger a job (or, with --bot, a single bot) on a running server",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrigger,
}

func init() {
	f := triggerCmd.Flags()
	f.StringVar(&triggerFlags.url, "url", "http://localhost:8080", "Server base URL")
	f.StringVar(&triggerFlags.secret, "secret", "", "Cron secret (default from config / CRON_SECRET)")
	f.BoolVar(&triggerFlags.bot, "bot", false, "Treat the argument as a bot name")
	f.BoolVar(&triggerFlags.dryRun, "dry-run", false, "Ask the server for a dry run")
	f.BoolVar(&triggerFlags.force, "force", false, "Post even if already posted today")
	f.DurationVar(&triggerFlags.wait, "wait", 5*time.Minute, "How long to wait for the server to become ready")
}

func runTrigger(cmd *cobra.Command, args []string) error {
	secret := triggerFlags.secret
	if secret == "" {
		secret = cfg.Server.CronSecret
	}
	if secret == "" {
		return fmt.Errorf("no cron secret: pass --secret or set CRON_SECRET")
	}

	c := remote.NewClient(triggerFlags.url, secret)
	if err := c.WaitForAPI(cmd.Context(), triggerFlags.wait); err != nil {
		return err
	}

	opts := bots.RunOptions{DryRun: triggerFlags.dryRun, Force: triggerFlags.force}
	var (
		resp *api.BatchResponse
		err  error
	)
	if triggerFlags.bot {
		resp, err = c.RunBot(cmd.Context(), args[0], opts)
	} else {
		resp, err = c.Trigger(cmd.Context(), args[0], opts)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, resp.Message)
	failed := 0
	for _, r := range resp.Results {
		status := "ok"
		switch {
		case r.Skipped:
			status = "skipped"
		case !r.Success:
			status = "FAIL " + r.Error
			failed++
		}
		fmt.Fprintf(out, "  %-13s %s\n", r.Bot, status)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d bots failed", failed, len(resp.Results))
	}
	return nil
}
