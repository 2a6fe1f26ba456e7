package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hakyung/xbots/internal/calendar"
	"github.com/hakyung/xbots/internal/fortune"
	"github.com/hakyung/xbots/internal/render"
)

var fortuneFlags struct {
	date   string
	prompt bool
}

var fortuneCmd = &cobra.Command{
	Use:   "fortune",
	Short: "Show each persona's relation to the day stem (no network)",
	Args:  cobra.NoArgs,
	RunE:  runFortune,
}

func init() {
	f := fortuneCmd.Flags()
	f.StringVar(&fortuneFlags.date, "date", "", "KST date as YYYY-MM-DD (default today)")
	f.BoolVar(&fortuneFlags.prompt, "prompt", false, "Also print the prompts sent to the model")
}

func runFortune(cmd *cobra.Command, _ []string) error {
	day := calendar.Today(nil)
	if fortuneFlags.date != "" {
		t, err := time.ParseInLocation(time.DateOnly, fortuneFlags.date, calendar.KST)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		day = calendar.On(t)
	}

	readings, err := fortune.Compute(day.Stem())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, render.Readings(day, readings, render.ASCII))
	fmt.Fprintln(out, day.Lunar)
	if fortuneFlags.prompt {
		fmt.Fprintf(out, "\n--- system ---\n%s\n--- user ---\n%s\n", fortune.SystemPrompt(), fortune.UserPrompt(day, readings))
	}
	return nil
}
