// Package clock provides the date sources used by the recurrence engine.
package clock

import (
	"sync"
	"time"

	"github.com/Veraticus/the-spice-must-recur/internal/schedule"
)

// System reports today's date according to the wall clock in Location.
type System struct {
	Location *time.Location // nil means time.Local
	now      func() time.Time
}

// NewSystem returns a System clock for the named IANA location.
// An empty name selects the local time zone.
func NewSystem(name string) (*System, error) {
	if name == "" {
		return &System{}, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	return &System{Location: loc}, nil
}

// Today returns the current calendar date.
func (c *System) Today() time.Time {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return schedule.DateOf(now().In(loc))
}

// Fixed always reports the same date. It is safe for concurrent use.
type Fixed struct {
	date time.Time
	mu   sync.RWMutex
}

// NewFixed returns a clock pinned to the calendar date of t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{date: schedule.DateOf(t)}
}

// Today returns the pinned date.
func (c *Fixed) Today() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.date
}

// Set moves the clock to the calendar date of t.
func (c *Fixed) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.date = schedule.DateOf(t)
}

// AddDays moves the clock forward (or backward) by n days.
func (c *Fixed) AddDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.date = c.date.AddDate(0, 0, n)
}
