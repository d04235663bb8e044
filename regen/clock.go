package regen

import "time"

// DefaultTimeout bounds how long a request may stay outstanding before it
// is cancelled.
const DefaultTimeout = 10 * time.Second

// Timer is a single-shot alarm. Stopping a timer that already fired, or
// was already stopped, is a no-op that returns false.
type Timer interface {
	Stop() bool
}

// Clock creates timers. Coordinators use SystemClock unless WithClock
// overrides it.
type Clock interface {
	// AfterFunc calls f on its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock is the wall-clock Clock backed by time.AfterFunc.
type SystemClock struct{}

// AfterFunc implements Clock.
func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
