// Package model defines the core data structures for the recurring transaction engine.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// IntervalUnit is the calendar unit a recurrence rule repeats on.
type IntervalUnit string

// Interval unit constants.
const (
	UnitDay   IntervalUnit = "day"
	UnitWeek  IntervalUnit = "week"
	UnitMonth IntervalUnit = "month"
	UnitYear  IntervalUnit = "year"
)

// ParseIntervalUnit converts user input such as "months" or "Weekly" to an IntervalUnit.
func ParseIntervalUnit(s string) (IntervalUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "days", "daily":
		return UnitDay, nil
	case "week", "weeks", "weekly":
		return UnitWeek, nil
	case "month", "months", "monthly":
		return UnitMonth, nil
	case "year", "years", "yearly", "annual", "annually":
		return UnitYear, nil
	default:
		return "", fmt.Errorf("unknown interval unit %q (expected day, week, month or year)", s)
	}
}

// Valid reports whether u is one of the known interval units.
func (u IntervalUnit) Valid() bool {
	switch u {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
		return true
	}
	return false
}

// RecurrenceRule is a user-defined template for a periodically repeating transaction.
type RecurrenceRule struct {
	NextOccurrence time.Time // calendar date, midnight UTC
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Amount         decimal.Decimal
	ID             string
	OwnerID        string
	Description    string
	Category       string
	Kind           Kind
	IntervalUnit   IntervalUnit
	IntervalValue  int
	Active         bool
}

// IsDue reports whether the rule should be materialized as of the given date.
func (r *RecurrenceRule) IsDue(asOf time.Time) bool {
	return r.Active && !r.NextOccurrence.After(asOf)
}

// Schedule describes the cadence in human terms, e.g. "every 2 weeks".
func (r *RecurrenceRule) Schedule() string {
	if r.IntervalValue == 1 {
		return "every " + string(r.IntervalUnit)
	}
	return fmt.Sprintf("every %d %ss", r.IntervalValue, r.IntervalUnit)
}

// Validate ensures the rule has valid data.
func (r *RecurrenceRule) Validate() error {
	if strings.TrimSpace(r.OwnerID) == "" {
		return fmt.Errorf("owner ID is required")
	}
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("description is required")
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("invalid kind %q", r.Kind)
	}
	if !r.IntervalUnit.Valid() {
		return fmt.Errorf("invalid interval unit %q", r.IntervalUnit)
	}
	if r.IntervalValue < 1 {
		return fmt.Errorf("interval value must be at least 1, got %d", r.IntervalValue)
	}
	if r.NextOccurrence.IsZero() {
		return fmt.Errorf("next occurrence date is required")
	}
	return nil
}
