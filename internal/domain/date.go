package domain

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates. The RMS never sends
// timestamps for booking boundaries, only whole days.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC-midnight time.Time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayString formats t as YYYY-MM-DD.
func DayString(t time.Time) string { return t.UTC().Format(DateLayout) }

// NightsBetween returns the number of whole days between two calendar days.
// For a committed booking this is always >= 1.
func NightsBetween(checkIn, checkOut time.Time) int {
	return int(Day(checkOut).Sub(Day(checkIn)) / (24 * time.Hour))
}

// SameDay reports whether a and b fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool { return Day(a).Equal(Day(b)) }

// EachDay calls fn for every day in the half-open interval [from, to).
func EachDay(from, to time.Time, fn func(day time.Time)) {
	for d := Day(from); d.Before(Day(to)); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}
