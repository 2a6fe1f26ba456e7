package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hakyung/xbots/internal/bots"
	"github.com/hakyung/xbots/internal/config"
	"github.com/hakyung/xbots/internal/events"
	"github.com/hakyung/xbots/internal/llm"
	"github.com/hakyung/xbots/internal/metrics"
	"github.com/hakyung/xbots/internal/persistence"
	"github.com/hakyung/xbots/internal/twitter"
	"github.com/hakyung/xbots/internal/weather"
	"github.com/hakyung/xbots/internal/wiki"
)

// app is everything a command needs to run bots.
type app struct {
	cfg     *config.Config
	db      *persistence.DB
	metrics *metrics.Metrics
	events  *events.Store
	runner  *bots.Runner
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := persistence.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	store, err := events.NewStore(cfg.Events.Path)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load events: %w", err)
	}

	m := metrics.New()
	completer := newCompleter(ctx, cfg)

	fortuneBot := &bots.Fortune{LLM: completer, Model: cfg.ModelFor(config.BotFortune), Metrics: m}
	nanalBot := &bots.Nanal{
		LLM:     completer,
		Model:   cfg.ModelFor(config.BotNanal),
		Wiki:    wiki.NewClient(cfg.Wikipedia.APIURL, cfg.Wikipedia.UserAgent),
		Events:  store,
		Metrics: m,
	}
	fairy := &bots.WeatherFairy{Cities: weatherCities(cfg.Weather.Cities)}
	if wc := newWeatherClient(cfg.Weather); wc != nil {
		fairy.Weather = wc
	}

	runner := bots.NewRunner(
		[]bots.Bot{fortuneBot, nanalBot, fairy},
		publishers(cfg, m),
		bots.WithJournal(db),
		bots.WithMetrics(m),
		bots.WithLogger(slog.Default()),
	)
	return &app{cfg: cfg, db: db, metrics: m, events: store, runner: runner}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// newCompleter returns nil when no key is configured; the LLM bots then
// fail their runs with llm.ErrDisabled.
func newCompleter(ctx context.Context, cfg *config.Config) llm.Completer {
	c, err := llm.New(ctx, llm.Config{
		Provider:     cfg.LLM.Provider,
		APIKey:       cfg.LLM.APIKey,
		BaseURL:      cfg.LLM.BaseURL,
		Model:        cfg.LLM.Model,
		Timeout:      cfg.GetLLMTimeout(),
		MaxPerMinute: cfg.LLM.CallsPerMinute,
	})
	if errors.Is(err, llm.ErrDisabled) {
		slog.Warn("LLM disabled (no API key)", "provider", cfg.LLM.Provider)
		return nil
	}
	if err != nil {
		slog.Error("LLM client setup failed", "provider", cfg.LLM.Provider, "error", err)
		return nil
	}
	slog.Info("LLM client ready", "provider", cfg.LLM.Provider)
	return c
}

func newWeatherClient(wc config.WeatherConfig) *weather.Client {
	var opts []weather.Option
	if wc.BaseURL != "" {
		opts = append(opts, weather.WithBaseURL(wc.BaseURL))
	}
	if wc.UserAgent != "" {
		opts = append(opts, weather.WithUserAgent(wc.UserAgent))
	}
	c := weather.NewClient(wc.APIKey, opts...)
	if c == nil {
		slog.Warn("weather disabled (no OPENWEATHERMAP_API_KEY)")
	}
	return c
}

func weatherCities(cs []config.City) []weather.City {
	out := make([]weather.City, len(cs))
	for i, c := range cs {
		out[i] = weather.City{Name: c.Name, Query: c.Query}
	}
	return out
}

// publishers logs posts in dry runs and signs in with the bot's own
// account otherwise.
func publishers(cfg *config.Config, m *metrics.Metrics) bots.PublisherFunc {
	return func(bot string, dryRun bool, log *slog.Logger) (twitter.Publisher, error) {
		if dryRun {
			return &twitter.DryRun{Log: log}, nil
		}
		creds, err := twitter.ParseCredentials(cfg.Credentials(bot))
		if err != nil {
			return nil, fmt.Errorf("%s credentials: %w", bot, err)
		}
		c, err := twitter.NewClient(creds,
			twitter.WithInterval(cfg.GetPostingInterval()),
			twitter.WithLogger(log),
			twitter.WithTruncationHook(func() { m.Truncated(bot) }),
		)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
