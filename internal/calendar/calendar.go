// Package calendar provides the clock and month arithmetic used by the ledger
// and the month simulator.
package calendar

import (
	"sync"
	"time"
)

// monthAdvance is the fixed offset used to step into the next month. It is not
// calendar-accurate: from the 30th or 31st of a month it can skip a whole month.
const monthAdvance = 32 * 24 * time.Hour

// Clock supplies the current time and the location used for calendar math.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// SystemClock reads the wall clock.
type SystemClock struct {
	Loc *time.Location
}

// NewSystemClock returns a wall clock in loc, or the local zone when loc is nil.
func NewSystemClock(loc *time.Location) SystemClock {
	if loc == nil {
		loc = time.Local
	}
	return SystemClock{Loc: loc}
}

// Now returns the current time in the clock's location.
func (c SystemClock) Now() time.Time {
	return time.Now().In(c.Location())
}

// Location returns the clock's location.
func (c SystemClock) Location() *time.Location {
	if c.Loc == nil {
		return time.Local
	}
	return c.Loc
}

// FixedClock always returns the same instant until it is moved.
type FixedClock struct {
	now time.Time
	mu  sync.RWMutex
}

// NewFixedClock returns a clock frozen at now.
func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now}
}

// Now returns the frozen instant.
func (c *FixedClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Location returns the location of the frozen instant.
func (c *FixedClock) Location() *time.Location {
	return c.Now().Location()
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// DayOfMonth returns the 1-based day of the month of t.
func DayOfMonth(t time.Time) int {
	return t.Day()
}

// Month returns the 0-based month of t.
func Month(t time.Time) int {
	return int(t.Month()) - 1
}

// Year returns the year of t.
func Year(t time.Time) int {
	return t.Year()
}

// SameMonth reports whether a and b fall in the same calendar month of the same year.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// StartOfMonth returns midnight on the first day of t's month in t's location.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// StartOfMonthMillis returns StartOfMonth(t) as epoch milliseconds.
func StartOfMonthMillis(t time.Time) int64 {
	return StartOfMonth(t).UnixMilli()
}

// AddOneMonth advances t by the fixed 32-day offset.
func AddOneMonth(t time.Time) time.Time {
	return t.Add(monthAdvance)
}

// NextMonthStart returns the start of the month reached by AddOneMonth.
func NextMonthStart(t time.Time) time.Time {
	return StartOfMonth(AddOneMonth(t))
}

// DateInMonth returns midnight on the given day of the month starting at monthStart.
// Days past the end of the month roll over the same way time.Date does.
func DateInMonth(monthStart time.Time, day int) time.Time {
	return time.Date(monthStart.Year(), monthStart.Month(), day, 0, 0, 0, 0, monthStart.Location())
}

// FromMillis converts epoch milliseconds to a time in loc.
func FromMillis(ms int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(ms).In(loc)
}
