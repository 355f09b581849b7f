package model

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of calendar dates in records and the store.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// MustDate is ParseDate for literals known to be valid.
func MustDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// DatePtr is MustDate returning a pointer, convenient for optional fields.
func DatePtr(s string) *time.Time {
	t := MustDate(s)
	return &t
}

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PreviousDay returns the calendar day before t.
func PreviousDay(t time.Time) time.Time {
	return Day(t).AddDate(0, 0, -1)
}

// Within reports whether from <= d <= to, treating nil bounds as open.
func Within(d time.Time, from, to *time.Time) bool {
	if from != nil && d.Before(*from) {
		return false
	}
	if to != nil && d.After(*to) {
		return false
	}
	return true
}

// SameDay reports whether the optional date p is set and equals d.
func SameDay(p *time.Time, d time.Time) bool {
	return p != nil && p.Equal(d)
}
