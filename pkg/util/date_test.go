package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	require.True(t, ok)
	assert.Equal(t, s, got.UTC().Format(time.RFC3339))
}

func TestParseTimeSQLStyle(t *testing.T) {
	got, ok := ParseTime("2024-10-10 18:30:00")
	require.True(t, ok)
	assert.Equal(t, 18, got.Hour())
	assert.Equal(t, 30, got.Minute())
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	require.True(t, ok)
	assert.Equal(t, ts, got.Unix())
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	assert.True(t, ParseTimeDefault("", def).Equal(def))
	assert.True(t, ParseTimeDefault("garbage", def).Equal(def))
}

func TestParseDay(t *testing.T) {
	d, ok := ParseDay("2024-06-15")
	require.True(t, ok)
	assert.Equal(t, time.Saturday, d.Weekday())

	_, ok = ParseDay("15/06/2024")
	assert.False(t, ok)
}

func TestDayHelpers(t *testing.T) {
	now := time.Date(2024, 12, 31, 22, 15, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Tomorrow(now))
	assert.Equal(t, time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), PreviousDay(now))

	start, end := DayBounds(now)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}

func TestParseAmount(t *testing.T) {
	v, ok := ParseAmount("1250.5")
	assert.True(t, ok)
	assert.InDelta(t, 1250.5, v, 1e-9)

	for _, bad := range []string{"", "-1", "NaN", "Inf", "abc"} {
		_, ok := ParseAmount(bad)
		assert.False(t, ok, bad)
	}
}
