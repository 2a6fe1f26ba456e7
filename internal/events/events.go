// Package events holds the custom events the nanal bot mentions before
// anything Wikipedia lists.
package events

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hakyung/xbots/internal/calendar"
)

//go:embed events.yaml
var defaultYAML []byte

// Type classifies an event.
type Type string

const (
	BotMilestone Type = "BOT_MILESTONE"
	CreatorEvent Type = "CREATOR_EVENT"
	MajorHoliday Type = "MAJOR_HOLIDAY"
)

// Calendar selects which date an event's month and day refer to.
type Calendar string

const (
	Gregorian Calendar = "gregorian"
	Lunar     Calendar = "lunar"
)

// Event is a recurring date worth mentioning.
type Event struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	StartYear   int      `yaml:"start_year,omitempty"`
	Type        Type     `yaml:"type"`
	Calendar    Calendar `yaml:"calendar"`
	Month       int      `yaml:"month"`
	Day         int      `yaml:"day"`
}

// Anniversary returns how many years have passed since StartYear, or 0
// when the event has no start year.
func (e Event) Anniversary(year int) int {
	if e.StartYear == 0 {
		return 0
	}
	return year - e.StartYear
}

// Describe formats "[name] description" and adds the anniversary when it
// is positive.
func (e Event) Describe(year int) string {
	s := fmt.Sprintf("[%s] %s", e.Name, e.Description)
	if n := e.Anniversary(year); n > 0 {
		s += fmt.Sprintf(" 올해로 %d주년입니다.", n)
	}
	return s
}

func (e Event) validate() error {
	var errs []error
	if strings.TrimSpace(e.Name) == "" {
		errs = append(errs, errors.New("missing name"))
	}
	switch e.Type {
	case BotMilestone, CreatorEvent, MajorHoliday:
	default:
		errs = append(errs, fmt.Errorf("unknown type %q", e.Type))
	}
	switch e.Calendar {
	case Gregorian, Lunar:
	default:
		errs = append(errs, fmt.Errorf("unknown calendar %q", e.Calendar))
	}
	if e.Month < 1 || e.Month > 12 {
		errs = append(errs, fmt.Errorf("month %d out of range", e.Month))
	}
	maxDay := 31
	if e.Calendar == Lunar {
		maxDay = 30
	}
	if e.Day < 1 || e.Day > maxDay {
		errs = append(errs, fmt.Errorf("day %d out of range", e.Day))
	}
	return errors.Join(errs...)
}

// Catalog is an ordered list of events.
type Catalog []Event

type file struct {
	Events []Event `yaml:"events"`
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse events: %w", err)
	}
	for i, e := range f.Events {
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i, e.Name, err)
		}
	}
	return Catalog(f.Events), nil
}

// Default returns the built-in catalog.
func Default() Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in events: %v", err))
	}
	return c
}

// Load reads a catalog file. An empty path returns the built-in catalog.
func Load(path string) (Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return Parse(data)
}

// On returns the events falling on day, in catalog order.
func (c Catalog) On(day calendar.Day) []Event {
	var out []Event
	for _, e := range c {
		switch e.Calendar {
		case Gregorian:
			if e.Month == day.Month() && e.Day == day.DayOfMonth() {
				out = append(out, e)
			}
		case Lunar:
			if !day.Lunar.Leap && e.Month == day.Lunar.Month && e.Day == day.Lunar.Day {
				out = append(out, e)
			}
		}
	}
	return out
}
