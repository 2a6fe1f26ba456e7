package weather

import (
	"fmt"
	"math"
	"strings"

	"github.com/hakyung/xbots/internal/calendar"
)

// Condition is a known weather description with its rank and icon.
type Condition struct {
	Description string
	Importance  int
	Icon        string
}

var conditions = []Condition{
	{"clear sky", 0, "☀️"},
	{"few clouds", 1, "🌤"},
	{"scattered clouds", 2, "⛅"},
	{"broken clouds", 3, "🌥"},
	{"mist", 4, "🌫"},
	{"shower rain", 5, "🌦"},
	{"rain", 6, "🌧"},
	{"thunderstorm", 7, "⛈️"},
	{"snow", 8, "☃️"},
}

// Unknown marks a missing value in a forecast line.
const Unknown = "❓"

// LookupCondition finds a description in the dictionary.
func LookupCondition(desc string) (Condition, bool) {
	for _, c := range conditions {
		if c.Description == desc {
			return c, true
		}
	}
	return Condition{}, false
}

// Summary condenses one city's forecast for one day. HasTemp is false when
// no slot fell on the day; Condition is empty when no slot carried a known
// description.
type Summary struct {
	HasTemp   bool
	Min       float64
	Max       float64
	Condition string
}

// Summarize takes the slots that fall on day in KST: the lowest temp_min,
// the highest temp_max and the most important known condition. Zero
// degrees is a temperature like any other.
func Summarize(f *Forecast, day calendar.Day) Summary {
	var s Summary
	if f == nil {
		return s
	}
	best := -1
	for _, slot := range f.List {
		if !day.Contains(slot.Time()) {
			continue
		}
		if !s.HasTemp {
			s.HasTemp = true
			s.Min, s.Max = slot.Main.TempMin, slot.Main.TempMax
		} else {
			s.Min = math.Min(s.Min, slot.Main.TempMin)
			s.Max = math.Max(s.Max, slot.Main.TempMax)
		}
		for _, w := range slot.Weather {
			if c, ok := LookupCondition(w.Description); ok && c.Importance > best {
				best = c.Importance
				s.Condition = c.Description
			}
		}
	}
	return s
}

// Icon returns the condition's icon, or Unknown.
func (s Summary) Icon() string {
	if c, ok := LookupCondition(s.Condition); ok {
		return c.Icon
	}
	return Unknown
}

// Line formats "서울 ☀️ - 최고: 12℃ | 최저: 3℃".
func (s Summary) Line(city string) string {
	hi, lo := Unknown, Unknown
	if s.HasTemp {
		hi = fmt.Sprint(Round(s.Max))
		lo = fmt.Sprint(Round(s.Min))
	}
	return fmt.Sprintf("%s %s - 최고: %s℃ | 최저: %s℃", city, s.Icon(), hi, lo)
}

// Round rounds half up, so -2.5 becomes -2.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Post renders the date header and one line per city.
func Post(day calendar.Day, cities []City, summaries []Summary) string {
	lines := []string{day.KoreanDate()}
	for i, city := range cities {
		var s Summary
		if i < len(summaries) {
			s = summaries[i]
		}
		lines = append(lines, s.Line(city.Name))
	}
	return strings.Join(lines, "\n")
}
