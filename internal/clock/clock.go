// Package clock abstracts wall time so deadlines and cache expiry can be tested.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type Real struct{}

func (Real) Now() time.Time { return time.Now().UTC() }

// Fixed is a manually driven clock for tests.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Date truncates t to its calendar day in loc, returned as midnight UTC of that day
// so it compares directly with DATE columns scanned by lib/pq.
func Date(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}

	y, m, d := t.In(loc).Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Passed reports whether the calendar day of now (in loc) is strictly after deadline.
// A deadline is open for the whole of its own day.
func Passed(deadline, now time.Time, loc *time.Location) bool {
	dy, dm, dd := deadline.Date()
	due := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)

	return Date(now, loc).After(due)
}
