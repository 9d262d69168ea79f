package crawler

import (
	"fmt"
	"time"

	"github.com/thep200/github-stats-pipeline/internal/model"
)

// Day truncates t to the start of its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDay(s string) (time.Time, error) {
	day, err := time.ParseInLocation(model.DayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q, want YYYY-MM-DD: %w", s, err)
	}
	return day, nil
}

// Days lists every UTC day from from to to, both included, ascending.
func Days(from, to time.Time) []time.Time {
	from, to = Day(from), Day(to)
	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// LastDays is the window ending at today and reaching back back days, so
// back = 6 covers a week.
func LastDays(now time.Time, back int) (time.Time, time.Time) {
	to := Day(now)
	if back < 0 {
		back = 0
	}
	return to.AddDate(0, 0, -back), to
}

// ResolveWindow picks the configured bounds, falling back to LastDays for any
// bound left empty.
func ResolveWindow(now time.Time, from, to string, back int) (time.Time, time.Time, error) {
	start, end := LastDays(now, back)
	var err error
	if to != "" {
		if end, err = ParseDay(to); err != nil {
			return time.Time{}, time.Time{}, err
		}
		if from == "" {
			start = end.AddDate(0, 0, -max(back, 0))
		}
	}
	if from != "" {
		if start, err = ParseDay(from); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("window starts %s after it ends %s", start.Format(model.DayLayout), end.Format(model.DayLayout))
	}
	return start, end, nil
}
