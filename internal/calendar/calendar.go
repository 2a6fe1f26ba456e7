// Package calendar resolves "today" for the bots: the KST date, its lunar
// date and its day pillar.
package calendar

import (
	"fmt"
	"time"

	lunar "github.com/6tail/lunar-go/calendar"

	"github.com/hakyung/xbots/internal/saju"
)

// KST is Korea Standard Time. Korea has not observed daylight saving since
// 1988, so a fixed zone avoids depending on the tz database.
var KST = time.FixedZone("KST", 9*60*60)

// Clock returns the current instant.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }

// LunarDate is a date on the Korean lunisolar calendar.
type LunarDate struct {
	Year  int
	Month int
	Day   int
	Leap  bool // the month is an intercalary (윤달) month
}

func (l LunarDate) String() string {
	leap := ""
	if l.Leap {
		leap = "윤"
	}
	return fmt.Sprintf("음력 %d년 %s%d월 %d일", l.Year, leap, l.Month, l.Day)
}

// Lunar converts the calendar date of t to the lunar calendar.
func Lunar(t time.Time) LunarDate {
	l := lunar.NewSolarFromYmd(t.Year(), int(t.Month()), t.Day()).GetLunar()
	month := l.GetMonth()
	leap := month < 0
	if leap {
		month = -month
	}
	return LunarDate{Year: l.GetYear(), Month: month, Day: l.GetDay(), Leap: leap}
}

// Day bundles everything the bots derive from a single KST date.
type Day struct {
	Date   time.Time // midnight KST
	Lunar  LunarDate
	Pillar saju.Pillar
}

// On returns the Day containing t, read in KST.
func On(t time.Time) Day {
	t = t.In(KST)
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, KST)
	return Day{
		Date:   date,
		Lunar:  Lunar(date),
		Pillar: saju.DayPillar(date),
	}
}

// Today returns the KST Day for the clock's current instant.
func Today(clock Clock) Day {
	if clock == nil {
		clock = SystemClock
	}
	return On(clock())
}

// Year, Month and DayOfMonth are shorthands for the solar date.
func (d Day) Year() int { return d.Date.Year() }
func (d Day) Month() int { return int(d.Date.Month()) }
func (d Day) DayOfMonth() int { return d.Date.Day() }
func (d Day) Stem() saju.Stem { return d.Pillar.Stem }
func (d Day) ISO() string { return d.Date.Format(time.DateOnly) }

// KoreanDate formats the date as "2025년 11월 10일".
func (d Day) KoreanDate() string {
	return fmt.Sprintf("%d년 %d월 %d일", d.Year(), d.Month(), d.DayOfMonth())
}

// MonthDay formats the date as "11월 10일".
func (d Day) MonthDay() string {
	return fmt.Sprintf("%d월 %d일", d.Month(), d.DayOfMonth())
}

var weekdays = [...]string{"일요일", "월요일", "화요일", "수요일", "목요일", "금요일", "토요일"}

// Weekday returns the Korean weekday name, e.g. "월요일".
func (d Day) Weekday() string { return weekdays[d.Date.Weekday()] }

// Contains reports whether t falls on this KST date.
func (d Day) Contains(t time.Time) bool {
	t = t.In(KST)
	return t.Year() == d.Year() && int(t.Month()) == d.Month() && t.Day() == d.DayOfMonth()
}
