package bots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hakyung/xbots/internal/calendar"
	"github.com/hakyung/xbots/internal/metrics"
	"github.com/hakyung/xbots/internal/persistence"
	"github.com/hakyung/xbots/internal/textbudget"
	"github.com/hakyung/xbots/internal/twitter"
)

// ErrUnknownBot is reported for names no bot answers to.
var ErrUnknownBot = errors.New("unknown bot")

// Journal records runs and answers whether a bot already posted on a date.
type Journal interface {
	RecordRun(run persistence.Run, posts []persistence.Post) error
	PostedToday(bot, date string) (bool, error)
}

// PublisherFunc returns the publisher a bot posts through.
type PublisherFunc func(bot string, dryRun bool, log *slog.Logger) (twitter.Publisher, error)

// DryRunPublishers logs every post and never publishes.
func DryRunPublishers(_ string, _ bool, log *slog.Logger) (twitter.Publisher, error) {
	return &twitter.DryRun{Log: log}, nil
}

// RunOptions tune one batch.
type RunOptions struct {
	DryRun bool
	// Force runs a bot even if it already posted today.
	Force bool
}

// Runner executes bots by name.
type Runner struct {
	bots      map[string]Bot
	order     []string
	publisher PublisherFunc
	journal   Journal
	metrics   *metrics.Metrics
	clock     calendar.Clock
	newID     func() string
	log       *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithJournal records every run.
func WithJournal(j Journal) RunnerOption { return func(r *Runner) { r.journal = j } }

// WithMetrics counts runs and posts.
func WithMetrics(m *metrics.Metrics) RunnerOption { return func(r *Runner) { r.metrics = m } }

// WithClock replaces the wall clock.
func WithClock(c calendar.Clock) RunnerOption { return func(r *Runner) { r.clock = c } }

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) RunnerOption { return func(r *Runner) { r.log = l } }

// WithRunIDs replaces the run id generator.
func WithRunIDs(f func() string) RunnerOption { return func(r *Runner) { r.newID = f } }

// NewRunner registers bots in the given order.
func NewRunner(bots []Bot, publisher PublisherFunc, opts ...RunnerOption) *Runner {
	r := &Runner{
		bots:      make(map[string]Bot, len(bots)),
		publisher: publisher,
		clock:     calendar.SystemClock,
		newID:     uuid.NewString,
		log:       slog.Default(),
	}
	for _, b := range bots {
		r.bots[b.Name()] = b
		r.order = append(r.order, b.Name())
	}
	if r.publisher == nil {
		r.publisher = DryRunPublishers
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Names lists the registered bots in registration order.
func (r *Runner) Names() []string {
	return append([]string(nil), r.order...)
}

// Has reports whether name is registered.
func (r *Runner) Has(name string) bool {
	_, ok := r.bots[name]
	return ok
}

// RunBatch runs the named bots one after another. A failing bot is logged
// and reported; the rest still run. The batch stops early only when ctx is
// cancelled.
func (r *Runner) RunBatch(ctx context.Context, names []string, opts RunOptions) []Result {
	results := make([]Result, 0, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			results = append(results, Result{Bot: name, DryRun: opts.DryRun, Error: ctx.Err().Error()})
			continue
		}
		results = append(results, r.Run(ctx, name, opts))
	}
	return results
}

// Run executes one bot and journals the outcome.
func (r *Runner) Run(ctx context.Context, name string, opts RunOptions) Result {
	started := r.clock()
	day := calendar.On(started)
	res := Result{
		Bot:       name,
		RunID:     r.newID(),
		DryRun:    opts.DryRun,
		StartedAt: started,
	}
	log := r.log.With("bot", name, "run_id", res.RunID)

	bot, ok := r.bots[name]
	if !ok {
		res.Error = fmt.Sprintf("%s: %q", ErrUnknownBot, name)
		log.Error("bot run failed", "error", res.Error)
		r.metrics.Run(name, metrics.OutcomeFailure)
		return res
	}

	if !opts.DryRun && !opts.Force && r.journal != nil {
		done, err := r.journal.PostedToday(name, day.ISO())
		if err != nil {
			log.Warn("journal lookup failed, running anyway", "error", err)
		} else if done {
			res.Success = true
			res.Skipped = true
			log.Info("already posted today, skipping", "date", day.ISO())
			r.finish(log, day, &res, nil)
			return res
		}
	}

	log.Info("bot run started", "date", day.ISO(), "iljin", day.Pillar.Iljin(), "dry_run", opts.DryRun)

	pub, err := r.publisher(name, opts.DryRun, log)
	if err != nil {
		res.Error = fmt.Sprintf("publisher: %v", err)
		r.finish(log, day, &res, nil)
		return res
	}

	out, err := bot.Run(ctx, RunContext{
		Day:       day,
		DryRun:    opts.DryRun,
		Publisher: pub,
		RunID:     res.RunID,
		Log:       log,
	})
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Success = true
	}
	r.finish(log, day, &res, out)
	return res
}

func (r *Runner) finish(log *slog.Logger, day calendar.Day, res *Result, out *Output) {
	res.Duration = r.clock().Sub(res.StartedAt)
	if out != nil {
		res.Tweet = out.Tweet
		res.Replies = out.Replies
	}

	outcome := metrics.OutcomeSuccess
	switch {
	case res.Skipped:
		outcome = metrics.OutcomeSkipped
	case !res.Success:
		outcome = metrics.OutcomeFailure
		log.Error("bot run failed", "error", res.Error, "duration", res.Duration)
	default:
		log.Info("bot run finished", "duration", res.Duration)
	}
	r.metrics.Run(res.Bot, outcome)
	if out != nil && !res.DryRun {
		if out.MainID != "" {
			r.metrics.Post(res.Bot, metrics.KindMain)
		}
		for range out.ReplyIDs {
			r.metrics.Post(res.Bot, metrics.KindReply)
		}
	}

	if r.journal == nil {
		return
	}
	run := persistence.Run{
		ID:         res.RunID,
		Bot:        res.Bot,
		Date:       day.ISO(),
		Success:    res.Success,
		DryRun:     res.DryRun,
		Skipped:    res.Skipped,
		Error:      res.Error,
		StartedMS:  res.StartedAt.UnixMilli(),
		DurationMS: res.Duration.Milliseconds(),
	}
	if err := r.journal.RecordRun(run, journalPosts(res.RunID, out)); err != nil {
		log.Error("journal write failed", "error", err)
	}
}

// journalPosts lists the posts of out. Reply ids are attached only when no
// reply failed, since the publisher skips failed replies without a gap.
func journalPosts(runID string, out *Output) []persistence.Post {
	if out == nil || out.Tweet == "" {
		return nil
	}
	posts := []persistence.Post{{
		RunID:  runID,
		Seq:    0,
		Kind:   metrics.KindMain,
		PostID: out.MainID,
		Text:   out.Tweet,
		Weight: textbudget.WeightedLength(out.Tweet),
	}}
	aligned := out.FailedReplies == 0 && len(out.ReplyIDs) == len(out.Replies)
	for i, text := range out.Replies {
		p := persistence.Post{
			RunID:  runID,
			Seq:    i + 1,
			Kind:   metrics.KindReply,
			Text:   text,
			Weight: textbudget.WeightedLength(text),
		}
		if aligned {
			p.PostID = out.ReplyIDs[i]
		}
		posts = append(posts, p)
	}
	return posts
}
