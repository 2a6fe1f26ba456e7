// Package weather fetches OpenWeatherMap forecasts and condenses a day of
// three-hour slots into one line per city.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hakyung/xbots/internal/calendar"
)

const (
	defaultBaseURL   = "https://api.openweathermap.org/data/2.5"
	defaultUserAgent = "WeatherFairyBot/1.0"
	maxBackoff       = 10 * time.Minute
)

// ErrBackoff is returned while a city waits out earlier failures and has
// nothing cached.
var ErrBackoff = errors.New("weather API backoff")

// City pairs the label used in posts with the OpenWeatherMap query.
type City struct {
	Name  string `yaml:"name"`
	Query string `yaml:"query"`
}

// DefaultCities are the cities the forecast post covers.
var DefaultCities = []City{
	{Name: "서울", Query: "Seoul"},
	{Name: "부산", Query: "Busan"},
	{Name: "평양", Query: "Pyongyang"},
}

// Forecast is the subset of the 5-day/3-hour forecast response we read.
type Forecast struct {
	List []Slot `json:"list"`
}

// Slot is one three-hour forecast entry.
type Slot struct {
	DT   int64 `json:"dt"`
	Main struct {
		TempMin float64 `json:"temp_min"`
		TempMax float64 `json:"temp_max"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

// Time returns the slot's start instant.
func (s Slot) Time() time.Time { return time.Unix(s.DT, 0) }

// cityState is the cache and failure backoff of one city.
type cityState struct {
	forecast    *Forecast
	fetchedAt   time.Time
	lastFailAt  time.Time
	failBackoff time.Duration
}

// Client fetches forecasts from OpenWeatherMap.
type Client struct {
	apiKey    string
	baseURL   string
	userAgent string
	client    *http.Client
	now       func() time.Time

	mu       sync.Mutex
	cities   map[string]*cityState
	cacheTTL time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") } }

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option { return func(c *Client) { c.userAgent = ua } }

// WithCacheTTL sets how long a forecast is reused.
func WithCacheTTL(d time.Duration) Option { return func(c *Client) { c.cacheTTL = d } }

// NewClient creates a forecast client. Returns nil if apiKey is empty.
func NewClient(apiKey string, opts ...Option) *Client {
	if apiKey == "" {
		return nil
	}
	c := &Client{
		apiKey:    apiKey,
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		client:    &http.Client{Timeout: 10 * time.Second},
		now:       time.Now,
		cities:    make(map[string]*cityState),
		cacheTTL:  5 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the forecast for city, using the cache if fresh. After a
// failure further calls for that city back off, doubling up to ten
// minutes, and serve the cached forecast if there is one.
func (c *Client) Fetch(ctx context.Context, city City) (*Forecast, error) {
	if c == nil {
		return nil, errors.New("weather client not configured")
	}
	c.mu.Lock()
	st, ok := c.cities[city.Query]
	if !ok {
		st = &cityState{}
		c.cities[city.Query] = st
	}
	now := c.now()
	if st.forecast != nil && now.Sub(st.fetchedAt) < c.cacheTTL {
		c.mu.Unlock()
		return st.forecast, nil
	}
	if st.failBackoff > 0 && now.Sub(st.lastFailAt) < st.failBackoff {
		remaining := st.failBackoff - now.Sub(st.lastFailAt)
		stale := st.forecast
		c.mu.Unlock()
		if stale != nil {
			return stale, nil
		}
		return nil, fmt.Errorf("%w (%s remaining)", ErrBackoff, remaining.Round(time.Second))
	}
	c.mu.Unlock()

	forecast, err := c.fetchFromAPI(ctx, city)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		st.lastFailAt = c.now()
		if st.failBackoff == 0 {
			st.failBackoff = time.Minute
		} else if st.failBackoff < maxBackoff {
			st.failBackoff *= 2
		}
		if st.forecast != nil {
			return st.forecast, nil
		}
		return nil, err
	}
	st.forecast = forecast
	st.fetchedAt = c.now()
	st.failBackoff = 0
	return forecast, nil
}

func (c *Client) fetchFromAPI(ctx context.Context, city City) (*Forecast, error) {
	q := url.Values{}
	q.Set("q", city.Query)
	q.Set("appid", c.apiKey)
	q.Set("lang", "en")
	q.Set("units", "metric")
	apiURL := c.baseURL + "/forecast?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather API call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API error %d: %s", resp.StatusCode, string(body))
	}

	var f Forecast
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("parse forecast: %w", err)
	}
	slog.Debug("forecast fetched", "city", city.Query, "slots", len(f.List))
	return &f, nil
}

// FetchAll fetches every city concurrently and summarizes day. A city
// whose fetch fails gets an empty summary; the error is logged, not
// returned.
func (c *Client) FetchAll(ctx context.Context, cities []City, day calendar.Day) []Summary {
	out := make([]Summary, len(cities))
	g, ctx := errgroup.WithContext(ctx)
	for i, city := range cities {
		g.Go(func() error {
			f, err := c.Fetch(ctx, city)
			if err != nil {
				slog.Error("forecast fetch failed", "city", city.Query, "error", err)
				return nil
			}
			out[i] = Summarize(f, day)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
