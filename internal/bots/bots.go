// Package bots holds the three daily bots and the runner that executes them
// in batches.
package bots

import (
	"context"
	"log/slog"
	"time"

	"github.com/hakyung/xbots/internal/calendar"
	"github.com/hakyung/xbots/internal/twitter"
)

// RunContext is what a bot receives for one run.
type RunContext struct {
	Day       calendar.Day
	DryRun    bool
	Publisher twitter.Publisher
	RunID     string
	Log       *slog.Logger
}

// Output is what a bot posted, or would have posted in a dry run.
type Output struct {
	Tweet   string
	Replies []string
	// MainID and ReplyIDs are the ids the publisher returned.
	MainID   string
	ReplyIDs []string
	// FailedReplies counts replies the publisher could not post.
	FailedReplies int
}

// Bot computes and publishes one day's post.
type Bot interface {
	Name() string
	Run(ctx context.Context, rc RunContext) (*Output, error)
}

// Result reports one bot run.
type Result struct {
	Bot       string        `json:"bot"`
	RunID     string        `json:"runId"`
	Success   bool          `json:"success"`
	DryRun    bool          `json:"dryRun"`
	Skipped   bool          `json:"skipped,omitempty"`
	Tweet     string        `json:"tweet,omitempty"`
	Replies   []string      `json:"replies,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"-"`
}
