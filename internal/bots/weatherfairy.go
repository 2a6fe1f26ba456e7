package bots

import (
	"context"
	"fmt"

	"github.com/hakyung/xbots/internal/calendar"
	"github.com/hakyung/xbots/internal/config"
	"github.com/hakyung/xbots/internal/weather"
)

// Forecaster summarizes a day's forecast for each city.
type Forecaster interface {
	FetchAll(ctx context.Context, cities []weather.City, day calendar.Day) []weather.Summary
}

// WeatherFairy posts the day's forecast for a fixed list of cities. Cities
// whose forecast is missing are still listed, with ❓ for the unknown values.
type WeatherFairy struct {
	Weather Forecaster
	Cities  []weather.City
}

func (w *WeatherFairy) Name() string { return config.BotWeatherFairy }

func (w *WeatherFairy) Run(ctx context.Context, rc RunContext) (*Output, error) {
	cities := w.Cities
	if len(cities) == 0 {
		cities = weather.DefaultCities
	}

	var summaries []weather.Summary
	if w.Weather == nil {
		rc.Log.Warn("no weather API key, posting unknown forecast")
	} else {
		summaries = w.Weather.FetchAll(ctx, cities, rc.Day)
	}

	text := weather.Post(rc.Day, cities, summaries)
	id, err := rc.Publisher.Post(ctx, text)
	if err != nil {
		return &Output{Tweet: text}, fmt.Errorf("post forecast: %w", err)
	}
	return &Output{Tweet: text, MainID: id}, nil
}
