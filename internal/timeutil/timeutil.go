package timeutil

import (
	"strings"
	"time"
)

// DateLayout is the layout of first available dates in both data sources.
const DateLayout = "2006-01-02"

func StartOfDay(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, value.Location())
}

// ParseDate reads an appointment date in the given location. API values may
// carry a time part, which is dropped.
func ParseDate(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) > len(DateLayout) {
		raw = raw[:len(DateLayout)]
	}
	parsed, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// DaysUntil counts calendar days from now to the appointment date. Past
// dates give zero.
func DaysUntil(raw string, now time.Time) (int, bool) {
	date, ok := ParseDate(raw, now.Location())
	if !ok {
		return 0, false
	}
	// Calendar days are counted in UTC so DST switches do not shorten a day.
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	days := int(to.Sub(from) / (24 * time.Hour))
	return max(days, 0), true
}
