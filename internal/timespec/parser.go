package timespec

import (
	"fmt"
	"strings"
	"time"
	// zone names must resolve on hosts without a system zoneinfo database
	_ "time/tzdata"
)

// ClockLayout is the spoken clock format used for creation and start times.
// Voice platforms deliver time slots in the same 24h "HH:MM" shape, so a
// converted backend timestamp can be compared to a slot value directly.
const ClockLayout = "15:04"

// layouts accepted for backend timestamps. Values without a zone are UTC.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Parse parses a backend timestamp (creationDate, startDate) into a UTC time.
// Supports RFC3339 with or without fractional seconds, and zone-less ISO
// timestamps which are interpreted as UTC.
func Parse(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid timestamp: %s (expected ISO-8601 like '2025-10-29T13:00:00Z')", value)
}

// Clock converts a UTC timestamp string to local wall-clock "HH:MM" in loc.
// Returns an empty string if the timestamp cannot be parsed.
func Clock(value string, loc *time.Location) string {
	t, err := Parse(value)
	if err != nil {
		return ""
	}
	return t.In(location(loc)).Format(ClockLayout)
}

// SameDay reports whether the timestamp falls on the same calendar day as now,
// both seen from loc.
func SameDay(value string, now time.Time, loc *time.Location) bool {
	t, err := Parse(value)
	if err != nil {
		return false
	}
	loc = location(loc)
	ty, tm, td := t.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	return ty == ny && tm == nm && td == nd
}

// LoadLocation resolves a timezone name. An empty name means the process's
// local zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
