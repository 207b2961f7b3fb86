// Package schedule implements the calendar arithmetic behind recurrence rules.
//
// All dates are calendar dates: the time-of-day is discarded and the result is
// expressed at midnight UTC. Month and year steps clamp to the last day of the
// target month, so 2024-01-31 plus one month is 2024-02-29 and 2024-02-29 plus
// one year is 2025-02-28. Clamping is not remembered between steps.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/the-spice-must-recur/internal/model"
)

// DateLayout is the storage and display format for calendar dates.
const DateLayout = "2006-01-02"

// Errors returned by Advance.
var (
	ErrInvalidInterval = errors.New("interval value must be at least 1")
	ErrUnknownUnit     = errors.New("unknown interval unit")
)

// DateOf returns the calendar date of t in its own location, at midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Advance returns the date one step of value units after date.
// It is pure and never consults the current time.
func Advance(date time.Time, unit model.IntervalUnit, value int) (time.Time, error) {
	if value < 1 {
		return time.Time{}, fmt.Errorf("%w: got %d", ErrInvalidInterval, value)
	}

	date = DateOf(date)
	switch unit {
	case model.UnitDay:
		return date.AddDate(0, 0, value), nil
	case model.UnitWeek:
		return date.AddDate(0, 0, 7*value), nil
	case model.UnitMonth:
		return addMonthsClamped(date, value), nil
	case model.UnitYear:
		return addMonthsClamped(date, 12*value), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
	}
}

// addMonthsClamped moves date forward by months, pinning the day to the last
// day of the target month when it would otherwise overflow.
func addMonthsClamped(date time.Time, months int) time.Time {
	y, m, d := date.Date()
	total := y*12 + int(m-1) + months
	ty, tm := total/12, time.Month(total%12+1)
	if last := DaysIn(ty, tm); d > last {
		d = last
	}
	return time.Date(ty, tm, d, 0, 0, 0, 0, time.UTC)
}

// Occurrences lists the next n dates of a rule starting at (and including) start.
func Occurrences(start time.Time, unit model.IntervalUnit, value, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, nil
	}
	dates := make([]time.Time, 0, n)
	current := DateOf(start)
	for i := 0; i < n; i++ {
		dates = append(dates, current)
		next, err := Advance(current, unit, value)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return dates, nil
}
