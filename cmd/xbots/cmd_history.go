package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hakyung/xbots/internal/persistence"
	"github.com/hakyung/xbots/internal/remote"
	"github.com/hakyung/xbots/internal/render"
)

var historyFlags struct {
	limit    int
	markdown bool
	url      string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent bot runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.IntVarP(&historyFlags.limit, "limit", "n", 20, "Number of runs")
	f.BoolVar(&historyFlags.markdown, "markdown", false, "Render a Markdown table")
	f.StringVar(&historyFlags.url, "url", "", "Read from a running server instead of the local journal")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	var (
		runs []persistence.Run
		err  error
	)
	if historyFlags.url != "" {
		runs, err = remote.NewClient(historyFlags.url, "").Runs(cmd.Context(), historyFlags.limit)
	} else {
		var db *persistence.DB
		db, err = persistence.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer db.Close()
		runs, err = db.RecentRuns(historyFlags.limit)
	}
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	mode := render.ASCII
	if historyFlags.markdown {
		mode = render.Markdown
	}
	fmt.Fprintln(cmd.OutOrStdout(), render.History(runs, time.Now(), mode))
	return nil
}
