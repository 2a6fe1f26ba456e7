package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hakyung/xbots/internal/bots"
	"github.com/hakyung/xbots/internal/render"
)

var runFlags struct {
	dryRun  bool
	force   bool
	preview bool
}

var runCmd = &cobra.Command{
	Use:   "run <bot|job>...",
	Short: "Run bots or scheduled jobs once, now",
	Long: "Run the named bots (fortune, nanal, weatherfairy) or jobs (e.g. midnight)\n" +
		"in order. A failing bot does not stop the ones after it.",
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.BoolVar(&runFlags.dryRun, "dry-run", false, "Log posts instead of publishing")
	f.BoolVar(&runFlags.force, "force", false, "Post even if the bot already posted today")
	f.BoolVar(&runFlags.preview, "preview", false, "Print each post in a box with its weighted length")
}

// expandNames replaces job names with their bots.
func expandNames(args []string) []string {
	var names []string
	for _, arg := range args {
		if job, ok := cfg.Job(arg); ok {
			names = append(names, job.Bots...)
			continue
		}
		names = append(names, arg)
	}
	return names
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	results := a.runner.RunBatch(cmd.Context(), expandNames(args), bots.RunOptions{
		DryRun: runFlags.dryRun,
		Force:  runFlags.force,
	})

	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range results {
		if runFlags.preview && r.Tweet != "" {
			fmt.Fprintln(out, render.Thread(r.Bot, r.Tweet, r.Replies))
		}
		switch {
		case r.Skipped:
			fmt.Fprintf(out, "%-13s skipped (already posted today)\n", r.Bot)
		case r.Success:
			fmt.Fprintf(out, "%-13s ok   %s\n", r.Bot, r.Duration.Round(time.Millisecond))
		default:
			failed++
			fmt.Fprintf(out, "%-13s FAIL %s\n", r.Bot, r.Error)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d bots failed", failed, len(results))
	}
	return nil
}
