package util

import "time"

const dateLayout = "2006-01-02"

// Today returns the calendar date of now in loc as YYYY-MM-DD.
func Today(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(dateLayout)
}

// DayBounds returns [start, end) of the calendar day containing now in loc, both in UTC.
func DayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := now.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// ParseDate parses YYYY-MM-DD into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}
