// Package api serves the cron trigger endpoints and read-only status.
// Trigger endpoints require the cron secret as a bearer token; the status
// endpoints are public.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hakyung/xbots/internal/bots"
	"github.com/hakyung/xbots/internal/calendar"
	"github.com/hakyung/xbots/internal/config"
	"github.com/hakyung/xbots/internal/metrics"
	"github.com/hakyung/xbots/internal/persistence"
)

// BatchRunner runs bots by name.
type BatchRunner interface {
	RunBatch(ctx context.Context, names []string, opts bots.RunOptions) []bots.Result
	Names() []string
	Has(name string) bool
}

// RunLister lists journaled runs.
type RunLister interface {
	RecentRuns(limit int) ([]persistence.Run, error)
}

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// Server serves the HTTP API.
type Server struct {
	Runner     BatchRunner
	DB         RunLister
	Metrics    *metrics.Metrics
	Jobs       []config.JobConfig
	Addr       string
	CronSecret string // Bearer token for trigger endpoints. Empty = triggers disabled.
	RateLimit  int    // Trigger requests per minute per IP.
	Clock      calendar.Clock

	started time.Time
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	if s.Clock == nil {
		s.Clock = calendar.SystemClock
	}
	if s.started.IsZero() {
		s.started = s.Clock()
	}
	limit := s.RateLimit
	if limit <= 0 {
		limit = 10
	}
	limiter := NewRateLimiter(limit)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.Handle("/metrics", s.Metrics.Handler())

	// Trigger endpoints (GET, require the cron secret).
	mux.HandleFunc("/api/cron/{job}", s.cronOnly(RateLimitMiddleware(limiter, s.handleCron)))
	mux.HandleFunc("/api/bots/{name}", s.cronOnly(RateLimitMiddleware(limiter, s.handleBot)))

	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", s.Addr, "cron_auth", s.CronSecret != "")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// checkBearerToken reports whether the request carries the cron secret.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.CronSecret
}

// cronOnly checks the secret before the method, so unauthenticated callers
// learn nothing about the route.
func (s *Server) cronOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.CronSecret == "" {
			http.Error(w, "trigger endpoints disabled (no CRON_SECRET set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			slog.Warn("unauthorized trigger attempt", "path", r.URL.Path, "ip", clientIP(r))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// BatchResponse is the body of a trigger response.
type BatchResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Results []bots.Result `json:"results"`
}

func runOptions(r *http.Request) bots.RunOptions {
	q := r.URL.Query()
	return bots.RunOptions{
		DryRun: q.Get("dryRun") == "true",
		Force:  q.Get("force") == "true",
	}
}

func (s *Server) job(name string) (config.JobConfig, bool) {
	for _, j := range s.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return config.JobConfig{}, false
}

var title = cases.Title(language.English)

func (s *Server) handleCron(w http.ResponseWriter, r *http.Request) {
	job, ok := s.job(r.PathValue("job"))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown job %q", r.PathValue("job")))
		return
	}
	opts := runOptions(r)
	slog.Info("cron job triggered", "job", job.Name, "bots", job.Bots, "dry_run", opts.DryRun, "force", opts.Force)

	// Posting continues even if the caller hangs up.
	results := s.Runner.RunBatch(context.WithoutCancel(r.Context()), job.Bots, opts)
	writeJSON(w, BatchResponse{
		Success: true,
		Message: fmt.Sprintf("%s job execution completed.", title.String(job.Name)),
		Results: results,
	})
}

func (s *Server) handleBot(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !s.Runner.Has(name) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown bot %q", name))
		return
	}
	opts := runOptions(r)
	slog.Info("bot triggered", "bot", name, "dry_run", opts.DryRun, "force", opts.Force)

	results := s.Runner.RunBatch(context.WithoutCancel(r.Context()), []string{name}, opts)
	writeJSON(w, BatchResponse{
		Success: true,
		Message: fmt.Sprintf("%s run completed.", title.String(name)),
		Results: results,
	})
}

type jobStatus struct {
	Name string   `json:"name"`
	At   string   `json:"at"`
	Bots []string `json:"bots"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	now := s.Clock()
	today := calendar.On(now)
	jobs := make([]jobStatus, 0, len(s.Jobs))
	for _, j := range s.Jobs {
		jobs = append(jobs, jobStatus{Name: j.Name, At: j.At, Bots: j.Bots})
	}
	writeJSON(w, map[string]any{
		"name":             "xbots",
		"bots":             s.Runner.Names(),
		"jobs":             jobs,
		"triggers_enabled": s.CronSecret != "",
		"uptime_seconds":   int64(now.Sub(s.started).Seconds()),
		"today": map[string]any{
			"date":  today.ISO(),
			"iljin": today.Pillar.Iljin(),
			"lunar": today.Lunar.String(),
		},
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "run journal not configured")
		return
	}
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}
	runs, err := s.DB.RecentRuns(limit)
	if err != nil {
		slog.Error("list runs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []persistence.Run{}
	}
	writeJSON(w, runs)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
