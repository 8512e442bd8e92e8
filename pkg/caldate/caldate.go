// Package caldate works with civil calendar dates. Every date is carried as a
// time.Time pinned to 12:00 UTC so that rendering it in any timezone between
// UTC-12 and UTC+11 still lands on the same calendar day.
package caldate

import (
	"fmt"
	"strings"
	"time"
)

const (
	ISOLayout = "2006-01-02"
	safeHour  = 12
)

// Date returns the calendar date y-m-d at the safe time of day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, safeHour, 0, 0, 0, time.UTC)
}

// Normalize keeps the calendar date of t as observed in t's own location.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

func ParseISO(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	// Accept full timestamps too; only the calendar part is kept.
	if len(trimmed) > len(ISOLayout) && trimmed[len(ISOLayout)] == 'T' {
		trimmed = trimmed[:len(ISOLayout)]
	}
	t, err := time.Parse(ISOLayout, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return Normalize(t), nil
}

// ParseOptionalISO returns nil for an empty string.
func ParseOptionalISO(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := ParseISO(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func FormatISO(t time.Time) string {
	return t.Format(ISOLayout)
}

func AddDays(t time.Time, days int) time.Time {
	n := Normalize(t)
	return n.AddDate(0, 0, days)
}

// AddMonths moves by whole calendar months, clamping the day to the end of
// the target month instead of overflowing (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, months int) time.Time {
	n := Normalize(t)
	y, m, d := n.Date()
	first := Date(y, m, 1).AddDate(0, months, 0)
	last := daysIn(first.Year(), first.Month())
	if d > last {
		d = last
	}
	return Date(first.Year(), first.Month(), d)
}

// FirstOfNextMonth returns the first day of the calendar month after now.
func FirstOfNextMonth(now time.Time) time.Time {
	y, m, _ := Normalize(now).Date()
	return Date(y, m, 1).AddDate(0, 1, 0)
}

// InclusiveMonths counts calendar months from `from` to `to`, including the
// partial current month when to's day-of-month is on or after from's. The
// result never drops below 1.
func InclusiveMonths(from, to time.Time) int {
	f := Normalize(from)
	t := Normalize(to)
	months := (t.Year()-f.Year())*12 + int(t.Month()) - int(f.Month())
	if t.Day() >= f.Day() {
		months++
	}
	if months < 1 {
		return 1
	}
	return months
}

// Before reports whether a's calendar date precedes b's.
func Before(a, b time.Time) bool {
	return Normalize(a).Before(Normalize(b))
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
