package scheduler

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hakyung/xbots/internal/calendar"
	"github.com/hakyung/xbots/internal/config"
	"github.com/hakyung/xbots/internal/persistence"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// database/sql keeps a connection opener goroutine per pool until Close.
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func kst(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, calendar.KST)
}

func defaultJobs(t *testing.T) []Job {
	t.Helper()
	jobs, err := JobsFromConfig(config.DefaultConfig().Schedule.Jobs)
	require.NoError(t, err)
	return jobs
}

func TestJobsFromConfig(t *testing.T) {
	jobs := defaultJobs(t)
	require.Len(t, jobs, 2)
	assert.Equal(t, Job{Name: "midnight", Hour: 0, Minute: 0, Bots: []string{"weatherfairy", "nanal"}}, jobs[0])
	assert.Equal(t, 8, jobs[1].Hour)

	_, err := JobsFromConfig([]config.JobConfig{{Name: "x", At: "25:00"}})
	assert.Error(t, err)
}

func TestNextFire(t *testing.T) {
	morning := Job{Name: "morning", Hour: 8}
	assert.Equal(t, kst(2025, 11, 10, 8, 0), morning.NextFire(kst(2025, 11, 10, 7, 59)))
	assert.Equal(t, kst(2025, 11, 11, 8, 0), morning.NextFire(kst(2025, 11, 10, 8, 0)))
	// 23:30 UTC is already 08:30 the next day in Seoul.
	assert.Equal(t, kst(2025, 11, 11, 8, 0), morning.NextFire(time.Date(2025, 11, 9, 23, 30, 0, 0, time.UTC)))
	// Month rollover.
	assert.Equal(t, kst(2025, 12, 1, 8, 0), morning.NextFire(kst(2025, 11, 30, 9, 0)))
}

func TestNext(t *testing.T) {
	s := &Scheduler{Jobs: defaultJobs(t)}
	job, at, ok := s.Next(kst(2025, 11, 10, 9, 0))
	require.True(t, ok)
	assert.Equal(t, "midnight", job.Name)
	assert.Equal(t, kst(2025, 11, 11, 0, 0), at)

	job, _, _ = s.Next(kst(2025, 11, 10, 3, 0))
	assert.Equal(t, "morning", job.Name)

	_, _, ok = (&Scheduler{}).Next(time.Now())
	assert.False(t, ok)
}

type recorder struct {
	mu    sync.Mutex
	fired []string
}

func (r *recorder) fire(_ context.Context, j Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, j.Name)
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.fired...)
}

func TestStep_FiresOncePerDay(t *testing.T) {
	now := kst(2025, 11, 10, 0, 0)
	rec := &recorder{}
	s := &Scheduler{Jobs: defaultJobs(t), Fire: rec.fire, Clock: func() time.Time { return now }, Log: quiet}
	s.init()
	ctx := context.Background()

	s.step(ctx)
	s.step(ctx)
	assert.Equal(t, []string{"midnight"}, rec.names())

	now = kst(2025, 11, 10, 7, 59)
	s.step(ctx)
	now = kst(2025, 11, 10, 8, 0)
	s.step(ctx)
	assert.Equal(t, []string{"midnight", "morning"}, rec.names())

	now = kst(2025, 11, 11, 0, 1)
	s.step(ctx)
	assert.Equal(t, []string{"midnight", "morning", "midnight"}, rec.names())
}

func TestStep_CatchUpWindow(t *testing.T) {
	now := kst(2025, 11, 10, 8, 59)
	rec := &recorder{}
	s := &Scheduler{Jobs: defaultJobs(t), Fire: rec.fire, Clock: func() time.Time { return now }, Log: quiet}
	s.init()

	s.step(context.Background())
	assert.Equal(t, []string{"morning"}, rec.names(), "midnight is past its window")

	now = kst(2025, 11, 12, 10, 0)
	s.step(context.Background())
	assert.Equal(t, []string{"morning"}, rec.names())
}

func TestStep_RemembersAcrossRestart(t *testing.T) {
	db, err := persistence.Open(filepath.Join(t.TempDir(), "xbots.db"))
	require.NoError(t, err)
	defer db.Close()

	now := kst(2025, 11, 10, 8, 10)
	clock := func() time.Time { return now }
	first := &recorder{}
	s := &Scheduler{Jobs: defaultJobs(t), Fire: first.fire, Clock: clock, Meta: db, Log: quiet}
	s.init()
	s.step(context.Background())
	require.Equal(t, []string{"morning"}, first.names())

	second := &recorder{}
	restarted := &Scheduler{Jobs: defaultJobs(t), Fire: second.fire, Clock: clock, Meta: db, Log: quiet}
	restarted.init()
	restarted.step(context.Background())
	assert.Empty(t, second.names())
}

func TestRun_StopsOnCancel(t *testing.T) {
	rec := &recorder{}
	s := &Scheduler{
		Jobs:     defaultJobs(t),
		Fire:     rec.fire,
		Interval: time.Millisecond,
		Clock:    func() time.Time { return kst(2025, 11, 10, 8, 0) },
		Log:      quiet,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.names()) == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, []string{"morning"}, rec.names())
}
