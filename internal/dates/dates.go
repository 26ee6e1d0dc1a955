// Package dates works with calendar days stored as YYYY-MM-DD strings.
package dates

import (
	"fmt"
	"time"
)

// Layout is the canonical calendar-day format.
const Layout = "2006-01-02"

// MonthLayout is the canonical calendar-month format.
const MonthLayout = "2006-01"

// Parse parses a YYYY-MM-DD day in UTC.
func Parse(day string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, day, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", day, err)
	}
	return t, nil
}

// Valid reports whether day is a well-formed calendar day.
func Valid(day string) bool {
	_, err := Parse(day)
	return err == nil
}

// Format returns the calendar day of t.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Today returns the current calendar day in UTC.
func Today() string {
	return Format(time.Now())
}

// AddDays shifts day by n calendar days.
func AddDays(day string, n int) (string, error) {
	t, err := Parse(day)
	if err != nil {
		return "", err
	}
	return Format(t.AddDate(0, 0, n)), nil
}

// DaysBetween returns the signed number of days from a to b.
func DaysBetween(a, b string) (int, error) {
	ta, err := Parse(a)
	if err != nil {
		return 0, err
	}
	tb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}

// EachDay returns every day from `from` to `to` inclusive.
func EachDay(from, to string) ([]string, error) {
	start, err := Parse(from)
	if err != nil {
		return nil, err
	}
	end, err := Parse(to)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("date range end %s is before start %s", to, from)
	}
	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, Format(d))
	}
	return days, nil
}

// Month returns the YYYY-MM month key of day. Malformed input yields "".
func Month(day string) string {
	if len(day) < 7 {
		return ""
	}
	return day[:7]
}

// EachMonth returns every month key touched by the inclusive day range.
func EachMonth(from, to string) ([]string, error) {
	start, err := Parse(from)
	if err != nil {
		return nil, err
	}
	end, err := Parse(to)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("date range end %s is before start %s", to, from)
	}
	var months []string
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	for ; !cur.After(last); cur = cur.AddDate(0, 1, 0) {
		months = append(months, cur.Format(MonthLayout))
	}
	return months, nil
}

// MonthBounds returns the first and last day of a YYYY-MM month.
func MonthBounds(month string) (string, string, error) {
	t, err := time.ParseInLocation(MonthLayout, month, time.UTC)
	if err != nil {
		return "", "", fmt.Errorf("invalid month %q: %w", month, err)
	}
	return Format(t), Format(t.AddDate(0, 1, -1)), nil
}

// InRange reports whether day lies within the inclusive range. Lexical
// comparison is valid for the canonical layout.
func InRange(day, from, to string) bool {
	return day >= from && day <= to
}

// Coalesce returns the first non-empty day.
func Coalesce(days ...*string) string {
	for _, d := range days {
		if d != nil && *d != "" {
			return *d
		}
	}
	return ""
}
