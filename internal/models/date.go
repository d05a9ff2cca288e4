package models

import (
	"fmt"
	"time"
)

// DateFormat is the wire format for calendar dates
const DateFormat = "2006-01-02"

// DateOnly truncates an instant to its calendar date at UTC midnight.
// All date comparison and week bucketing in the system operates on values
// normalized this way, so "today" has a single unambiguous meaning.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether two instants fall on the same calendar date (UTC)
func SameDate(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}

// ParseDate parses a YYYY-MM-DD string into a UTC-midnight date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", s, err)
	}
	return DateOnly(t), nil
}

// FormatDate renders a date as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return DateOnly(t).Format(DateFormat)
}
