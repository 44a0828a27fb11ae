// Package calendar is the single source of day and month boundary
// logic. Every component that resets state on a calendar boundary goes
// through the same Boundary instance, so "today" means the same thing
// everywhere.
package calendar

import "time"

const (
	dayKeyLayout   = "2006-01-02"
	monthKeyLayout = "2006-01"
)

// Boundary resolves calendar keys in a fixed time zone.
type Boundary struct {
	loc   *time.Location
	nowFn func() time.Time
}

// New creates a Boundary for the given location. A nil location means
// the process-local time zone.
func New(loc *time.Location) *Boundary {
	if loc == nil {
		loc = time.Local
	}
	return &Boundary{loc: loc, nowFn: time.Now}
}

// SetNow overrides the clock. Test hook only.
func (b *Boundary) SetNow(nowFn func() time.Time) {
	b.nowFn = nowFn
}

// Now returns the current time in the boundary's time zone.
func (b *Boundary) Now() time.Time {
	return b.nowFn().In(b.loc)
}

// DayKey returns the calendar-day key for t, e.g. "2026-08-29".
func (b *Boundary) DayKey(t time.Time) string {
	return t.In(b.loc).Format(dayKeyLayout)
}

// MonthKey returns the calendar-month key for t, e.g. "2026-08".
func (b *Boundary) MonthKey(t time.Time) string {
	return t.In(b.loc).Format(monthKeyLayout)
}

// Location returns the configured time zone.
func (b *Boundary) Location() *time.Location {
	return b.loc
}
