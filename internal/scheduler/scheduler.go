// Package scheduler fires the daily bot jobs at their KST wall-clock times.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hakyung/xbots/internal/calendar"
	"github.com/hakyung/xbots/internal/config"
)

const (
	// DefaultInterval is how often the loop checks for due jobs.
	DefaultInterval = 30 * time.Second
	// DefaultCatchUp is how late a job may still fire after its time, e.g.
	// after a restart.
	DefaultCatchUp = time.Hour
)

// Job is a named batch of bots fired once a day.
type Job struct {
	Name   string
	Hour   int
	Minute int
	Bots   []string
}

// JobsFromConfig converts configured jobs.
func JobsFromConfig(cfgs []config.JobConfig) ([]Job, error) {
	jobs := make([]Job, 0, len(cfgs))
	for _, c := range cfgs {
		h, m, err := config.ParseClock(c.At)
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", c.Name, err)
		}
		jobs = append(jobs, Job{Name: c.Name, Hour: h, Minute: m, Bots: c.Bots})
	}
	return jobs, nil
}

// At returns the job's fire time on day.
func (j Job) At(day calendar.Day) time.Time {
	return day.Date.Add(time.Duration(j.Hour)*time.Hour + time.Duration(j.Minute)*time.Minute)
}

// NextFire returns the first fire time strictly after now.
func (j Job) NextFire(now time.Time) time.Time {
	day := calendar.On(now)
	at := j.At(day)
	if !at.After(now) {
		at = j.At(calendar.On(day.Date.AddDate(0, 0, 1)))
	}
	return at
}

// MetaStore persists the last fire date of each job across restarts.
type MetaStore interface {
	SaveMeta(key, value string) error
	GetMeta(key string) (string, error)
}

// FireFunc runs a due job. It is called from the scheduler goroutine, one
// job at a time.
type FireFunc func(ctx context.Context, job Job)

// Scheduler checks the clock every Interval and fires due jobs.
type Scheduler struct {
	Jobs     []Job
	Fire     FireFunc
	Interval time.Duration
	CatchUp  time.Duration
	Clock    calendar.Clock
	Meta     MetaStore
	Log      *slog.Logger

	lastFired map[string]string // job name → KST date it last fired
}

func metaKey(job string) string { return "scheduler.last_fired." + job }

// Next returns the job that fires first after now and when.
func (s *Scheduler) Next(now time.Time) (Job, time.Time, bool) {
	var (
		next Job
		at   time.Time
	)
	for _, j := range s.Jobs {
		t := j.NextFire(now)
		if at.IsZero() || t.Before(at) {
			next, at = j, t
		}
	}
	return next, at, !at.IsZero()
}

func (s *Scheduler) init() {
	if s.Interval <= 0 {
		s.Interval = DefaultInterval
	}
	if s.CatchUp <= 0 {
		s.CatchUp = DefaultCatchUp
	}
	if s.Clock == nil {
		s.Clock = calendar.SystemClock
	}
	if s.Log == nil {
		s.Log = slog.Default()
	}
	if s.lastFired == nil {
		s.lastFired = make(map[string]string, len(s.Jobs))
		for _, j := range s.Jobs {
			if s.Meta == nil {
				continue
			}
			v, err := s.Meta.GetMeta(metaKey(j.Name))
			if err != nil {
				s.Log.Warn("load last fire failed", "job", j.Name, "error", err)
				continue
			}
			s.lastFired[j.Name] = v
		}
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.init()
	if _, at, ok := s.Next(s.Clock()); ok {
		s.Log.Info("scheduler started", "jobs", len(s.Jobs), "next", at.In(calendar.KST).Format(time.DateTime))
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.step(ctx)
	for {
		select {
		case <-ctx.Done():
			s.Log.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.step(ctx)
		}
	}
}

// step fires every job whose time today has passed, within the catch-up
// window, and that has not fired today.
func (s *Scheduler) step(ctx context.Context) {
	now := s.Clock()
	day := calendar.On(now)
	for _, j := range s.Jobs {
		if ctx.Err() != nil {
			return
		}
		at := j.At(day)
		if now.Before(at) || now.Sub(at) >= s.CatchUp || s.lastFired[j.Name] == day.ISO() {
			continue
		}
		s.lastFired[j.Name] = day.ISO()
		if s.Meta != nil {
			if err := s.Meta.SaveMeta(metaKey(j.Name), day.ISO()); err != nil {
				s.Log.Warn("save last fire failed", "job", j.Name, "error", err)
			}
		}
		s.Log.Info("job due", "job", j.Name, "bots", j.Bots, "late", now.Sub(at).Round(time.Second))
		s.Fire(ctx, j)
	}
}
