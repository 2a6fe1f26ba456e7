package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakyung/xbots/internal/bots"
	"github.com/hakyung/xbots/internal/calendar"
	"github.com/hakyung/xbots/internal/config"
	"github.com/hakyung/xbots/internal/metrics"
	"github.com/hakyung/xbots/internal/persistence"
)

type batchCall struct {
	names []string
	opts  bots.RunOptions
}

// fakeRunner succeeds for every bot except those listed in fail.
type fakeRunner struct {
	mu    sync.Mutex
	calls []batchCall
	fail  map[string]string
}

func (f *fakeRunner) RunBatch(_ context.Context, names []string, opts bots.RunOptions) []bots.Result {
	f.mu.Lock()
	f.calls = append(f.calls, batchCall{names: names, opts: opts})
	f.mu.Unlock()
	out := make([]bots.Result, 0, len(names))
	for _, n := range names {
		if msg, ok := f.fail[n]; ok {
			out = append(out, bots.Result{Bot: n, DryRun: opts.DryRun, Error: msg})
			continue
		}
		out = append(out, bots.Result{Bot: n, Success: true, DryRun: opts.DryRun})
	}
	return out
}

func (f *fakeRunner) Names() []string { return []string{"fortune", "nanal", "weatherfairy"} }

func (f *fakeRunner) Has(name string) bool {
	for _, n := range f.Names() {
		if n == name {
			return true
		}
	}
	return false
}

type fakeRuns struct {
	runs  []persistence.Run
	err   error
	limit int
}

func (f *fakeRuns) RecentRuns(limit int) ([]persistence.Run, error) {
	f.limit = limit
	return f.runs, f.err
}

func newTestServer(runner *fakeRunner, db RunLister) *Server {
	return &Server{
		Runner:     runner,
		DB:         db,
		Metrics:    metrics.New(),
		Jobs:       config.DefaultConfig().Schedule.Jobs,
		CronSecret: "test-secret",
		RateLimit:  100,
		Clock:      func() time.Time { return time.Date(2025, 11, 10, 9, 0, 0, 0, calendar.KST) },
	}
}

func do(t *testing.T, h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBatch(t *testing.T, rec *httptest.ResponseRecorder) BatchResponse {
	t.Helper()
	var body BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCron_WrongSecret(t *testing.T) {
	runner := &fakeRunner{}
	h := newTestServer(runner, nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/cron/midnight", "wrong-secret")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized\n", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/cron/midnight", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, runner.calls)
}

func TestCron_AuthBeforeMethod(t *testing.T) {
	runner := &fakeRunner{}
	h := newTestServer(runner, nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/cron/midnight", "wrong-secret")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/cron/midnight", "test-secret")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method Not Allowed\n", rec.Body.String())
	assert.Empty(t, runner.calls)
}

func TestCron_DisabledWithoutSecret(t *testing.T) {
	srv := newTestServer(&fakeRunner{}, nil)
	srv.CronSecret = ""
	rec := do(t, srv.Handler(), http.MethodGet, "/api/cron/midnight", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCron_MidnightDryRun(t *testing.T) {
	runner := &fakeRunner{}
	h := newTestServer(runner, nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/cron/midnight?dryRun=true", "test-secret")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"weatherfairy", "nanal"}, runner.calls[0].names)
	assert.True(t, runner.calls[0].opts.DryRun)
	assert.False(t, runner.calls[0].opts.Force)

	body := decodeBatch(t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, "Midnight job execution completed.", body.Message)
	require.Len(t, body.Results, 2)
	assert.Equal(t, "weatherfairy", body.Results[0].Bot)
	assert.True(t, body.Results[0].Success)
	assert.Equal(t, "nanal", body.Results[1].Bot)
	assert.True(t, body.Results[1].DryRun)
}

func TestCron_ContinuesWhenOneBotFails(t *testing.T) {
	runner := &fakeRunner{fail: map[string]string{"nanal": "Nanal Bot Failed"}}
	h := newTestServer(runner, nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/cron/midnight", "test-secret")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBatch(t, rec)
	assert.True(t, body.Success)
	require.Len(t, body.Results, 2)
	assert.True(t, body.Results[0].Success)
	assert.False(t, body.Results[1].Success)
	assert.Equal(t, "Nanal Bot Failed", body.Results[1].Error)
	assert.False(t, runner.calls[0].opts.DryRun)
}

func TestCron_Morning(t *testing.T) {
	runner := &fakeRunner{}
	h := newTestServer(runner, nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/cron/morning?force=true", "test-secret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"fortune"}, runner.calls[0].names)
	assert.True(t, runner.calls[0].opts.Force)
	assert.Equal(t, "Morning job execution completed.", decodeBatch(t, rec).Message)
}

func TestCron_UnknownJob(t *testing.T) {
	rec := do(t, newTestServer(&fakeRunner{}, nil).Handler(), http.MethodGet, "/api/cron/noon", "test-secret")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBot_Single(t *testing.T) {
	runner := &fakeRunner{}
	h := newTestServer(runner, nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/bots/nanal?dryRun=true", "test-secret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"nanal"}, runner.calls[0].names)
	body := decodeBatch(t, rec)
	assert.Equal(t, "Nanal run completed.", body.Message)

	rec = do(t, h, http.MethodGet, "/api/bots/horoscope", "test-secret")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTriggers_RateLimited(t *testing.T) {
	srv := newTestServer(&fakeRunner{}, nil)
	srv.RateLimit = 2
	h := srv.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/cron/morning", "test-secret").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/cron/morning", "test-secret").Code)
	rec := do(t, h, http.MethodGet, "/api/cron/morning", "test-secret")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestStatus(t *testing.T) {
	rec := do(t, newTestServer(&fakeRunner{}, nil).Handler(), http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Bots            []string `json:"bots"`
		TriggersEnabled bool     `json:"triggers_enabled"`
		Jobs            []struct {
			Name string `json:"name"`
			At   string `json:"at"`
		} `json:"jobs"`
		Today struct {
			Date  string `json:"date"`
			Iljin string `json:"iljin"`
		} `json:"today"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"fortune", "nanal", "weatherfairy"}, body.Bots)
	assert.True(t, body.TriggersEnabled)
	require.Len(t, body.Jobs, 2)
	assert.Equal(t, "00:00", body.Jobs[0].At)
	assert.Equal(t, "2025-11-10", body.Today.Date)
	assert.Equal(t, "계미일", body.Today.Iljin)
}

func TestRuns(t *testing.T) {
	db := &fakeRuns{runs: []persistence.Run{{ID: "r1", Bot: "nanal", Date: "2025-11-10", Success: true}}}
	h := newTestServer(&fakeRunner{}, db).Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultRunsLimit, db.limit)
	var runs []persistence.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Equal(t, db.runs, runs)

	do(t, h, http.MethodGet, "/api/v1/runs?limit=5000", "")
	assert.Equal(t, maxRunsLimit, db.limit)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/runs?limit=abc", "").Code)

	db.err = errors.New("disk")
	assert.Equal(t, http.StatusInternalServerError, do(t, h, http.MethodGet, "/api/v1/runs", "").Code)
}

func TestRuns_NoJournal(t *testing.T) {
	rec := do(t, newTestServer(&fakeRunner{}, nil).Handler(), http.MethodGet, "/api/v1/runs", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&fakeRunner{}, nil)
	srv.Metrics.Run("fortune", metrics.OutcomeSuccess)
	rec := do(t, srv.Handler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `xbots_runs_total{bot="fortune",outcome="success"} 1`)
}

func TestRateLimiter_PerIP(t *testing.T) {
	rl := NewRateLimiter(1)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.Equal(t, 61, rl.RetryAfter())
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(r))
}
