package util

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripDialSymbols(t *testing.T) {
	assert.Equal(t, "971501234567", StripDialSymbols("+971 50-123-4567"))
	assert.Equal(t, "971(50)1234567", StripDialSymbols("+971 (50) 1234567"))
	assert.Equal(t, "", StripDialSymbols(" + - "))
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "971501234567", DigitsOnly("+971 (50) 123-4567"))
	assert.Equal(t, "", DigitsOnly("n/a"))
	assert.Equal(t, "5012", DigitsOnly("٥501٣2"))
}

func TestToday_UsesLocationNotUTC(t *testing.T) {
	dubai, err := time.LoadLocation("Asia/Dubai")
	require.NoError(t, err)

	// 21:30 UTC on the 16th is already 01:30 on the 17th in Dubai.
	now := time.Date(2026, 10, 16, 21, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-10-17", Today(now, dubai))
	assert.Equal(t, "2026-10-16", Today(now, time.UTC))
}

func TestDayBounds(t *testing.T) {
	dubai, err := time.LoadLocation("Asia/Dubai")
	require.NoError(t, err)

	now := time.Date(2026, 10, 16, 21, 30, 0, 0, time.UTC)
	start, end := DayBounds(now, dubai)
	assert.Equal(t, time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC), end)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-10-17")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("17/10/2026")
	assert.Error(t, err)
}

func TestNewID(t *testing.T) {
	ts := time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC)
	id := NewID(ts)

	parsed, err := ulid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(ts), parsed.Time())
}
