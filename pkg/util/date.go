package util

import (
	"strconv"
	"time"
)

const (
	DayLayout      = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// ParseTime tries RFC3339, RFC3339Nano, "YYYY-MM-DD HH:MM:SS" and unix seconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(DateTimeLayout, s, time.Local); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// ParseDay parses a YYYY-MM-DD calendar day in the local zone.
func ParseDay(s string) (time.Time, bool) {
	t, err := time.ParseInLocation(DayLayout, s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayBounds returns [start, end) of the calendar day containing t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := StartOfDay(t)
	return start, start.AddDate(0, 0, 1)
}

// Tomorrow returns the calendar day after now.
func Tomorrow(now time.Time) time.Time {
	return StartOfDay(now).AddDate(0, 0, 1)
}

// PreviousDay returns the calendar day before t.
func PreviousDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, -1)
}
