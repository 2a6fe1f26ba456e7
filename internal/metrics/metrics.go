// Package metrics exposes bot run counters to Prometheus. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Post kinds.
const (
	KindMain  = "main"
	KindReply = "reply"
)

// Metrics holds the counters for one registry.
type Metrics struct {
	registry    *prometheus.Registry
	runs        *prometheus.CounterVec
	posts       *prometheus.CounterVec
	truncations *prometheus.CounterVec
	llmCalls    *prometheus.CounterVec
}

// New registers the counters on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xbots_runs_total",
			Help: "Bot runs by outcome.",
		}, []string{"bot", "outcome"}),
		posts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xbots_posts_total",
			Help: "Posts published, by kind.",
		}, []string{"bot", "kind"}),
		truncations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xbots_truncations_total",
			Help: "Posts shortened to fit the weighted length limit.",
		}, []string{"bot"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xbots_llm_calls_total",
			Help: "LLM completions by result.",
		}, []string{"bot", "result"}),
	}
	m.registry.MustRegister(m.runs, m.posts, m.truncations, m.llmCalls)
	return m
}

// Run counts a finished bot run.
func (m *Metrics) Run(bot, outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(bot, outcome).Inc()
}

// Post counts a published post.
func (m *Metrics) Post(bot, kind string) {
	if m == nil {
		return
	}
	m.posts.WithLabelValues(bot, kind).Inc()
}

// Truncated counts a post that had to be shortened.
func (m *Metrics) Truncated(bot string) {
	if m == nil {
		return
	}
	m.truncations.WithLabelValues(bot).Inc()
}

// LLMCall counts a completion; ok is false for errors.
func (m *Metrics) LLMCall(bot string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.llmCalls.WithLabelValues(bot, result).Inc()
}

// Registry returns the underlying registry, or nil.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
