// Package remote drives a running xbots server through its HTTP API.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hakyung/xbots/internal/api"
	"github.com/hakyung/xbots/internal/bots"
	"github.com/hakyung/xbots/internal/persistence"
)

// ErrNotReady is returned when the server never answered within the wait.
var ErrNotReady = errors.New("server did not become ready")

// Status mirrors GET /api/v1/status.
type Status struct {
	Name            string   `json:"name"`
	Bots            []string `json:"bots"`
	TriggersEnabled bool     `json:"triggers_enabled"`
	UptimeSeconds   int64    `json:"uptime_seconds"`
	Jobs            []struct {
		Name string   `json:"name"`
		At   string   `json:"at"`
		Bots []string `json:"bots"`
	} `json:"jobs"`
	Today struct {
		Date  string `json:"date"`
		Iljin string `json:"iljin"`
		Lunar string `json:"lunar"`
	} `json:"today"`
}

// Client calls one server.
type Client struct {
	BaseURL    string
	Secret     string
	HTTPClient *http.Client

	// Backoff bounds for WaitForAPI.
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// NewClient targets baseURL and authenticates triggers with secret.
func NewClient(baseURL, secret string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Secret:  secret,
		HTTPClient: &http.Client{
			// Trigger calls wait for every bot in the batch.
			Timeout: 5 * time.Minute,
		},
		MinBackoff: 2 * time.Second,
		MaxBackoff: 30 * time.Second,
	}
}

// Status fetches GET /api/v1/status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.get(ctx, "/api/v1/status", false, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// WaitForAPI polls the status endpoint with exponential backoff until it
// answers 200 or maxWait elapses.
func (c *Client) WaitForAPI(ctx context.Context, maxWait time.Duration) error {
	backoff := c.MinBackoff
	deadline := time.Now().Add(maxWait)
	for {
		if _, err := c.Status(ctx); err == nil {
			slog.Info("xbots API is ready", "url", c.BaseURL)
			return nil
		} else if time.Now().Add(backoff).After(deadline) {
			return fmt.Errorf("%w within %s: %v", ErrNotReady, maxWait, err)
		} else {
			slog.Info("xbots API not ready, retrying...", "backoff", backoff, "error", err)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, c.MaxBackoff)
	}
}

// Trigger runs a scheduled job now.
func (c *Client) Trigger(ctx context.Context, job string, opts bots.RunOptions) (*api.BatchResponse, error) {
	return c.batch(ctx, "/api/cron/"+url.PathEscape(job), opts)
}

// RunBot runs a single bot now.
func (c *Client) RunBot(ctx context.Context, name string, opts bots.RunOptions) (*api.BatchResponse, error) {
	return c.batch(ctx, "/api/bots/"+url.PathEscape(name), opts)
}

// Runs lists the most recent journaled runs.
func (c *Client) Runs(ctx context.Context, limit int) ([]persistence.Run, error) {
	var runs []persistence.Run
	err := c.get(ctx, "/api/v1/runs?limit="+strconv.Itoa(limit), false, &runs)
	return runs, err
}

func (c *Client) batch(ctx context.Context, path string, opts bots.RunOptions) (*api.BatchResponse, error) {
	q := url.Values{}
	if opts.DryRun {
		q.Set("dryRun", "true")
	}
	if opts.Force {
		q.Set("force", "true")
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out api.BatchResponse
	if err := c.get(ctx, path, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, auth bool, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.Secret)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s failed (%d): %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
