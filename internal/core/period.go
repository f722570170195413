package core

import (
	"errors"
	"time"
)

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

// Period is the aggregation granularity for range queries.
type Period string

// Range is an inclusive [Start, End] window over expense dates.
type Range struct {
	Start time.Time
	End   time.Time
}

// ErrInvalidPeriod is returned for unknown period names.
var ErrInvalidPeriod = errors.New("invalid period")

// ParsePeriod validates a period string, defaulting to monthly when empty.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case Daily, Weekly, Monthly:
		return Period(s), nil
	case "":
		return Monthly, nil
	}
	return "", ErrInvalidPeriod
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// ResolveRange converts a (period, anchor) pair into an inclusive date
// range covering the whole day, week or month around the anchor.
//
// Weeks start on Sunday. Bounds are computed in the anchor's own location;
// End lands on the last millisecond of the window so that timestamp
// comparisons treat the final day as fully included.
func ResolveRange(period Period, anchor time.Time) Range {
	switch period {
	case Daily:
		return Range{Start: startOfDay(anchor), End: endOfDay(anchor)}
	case Weekly:
		sunday := anchor.AddDate(0, 0, -int(anchor.Weekday()))
		return Range{Start: startOfDay(sunday), End: endOfDay(sunday.AddDate(0, 0, 6))}
	case Monthly:
		first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
		last := first.AddDate(0, 1, -1)
		return Range{Start: first, End: endOfDay(last)}
	default:
		return Range{Start: startOfDay(anchor), End: endOfDay(anchor)}
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}
