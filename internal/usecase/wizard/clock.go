package wizard

import "time"

// Clock abstracts wall time and timer creation so the transition cooldown
// and the input debounce can be driven deterministically in tests.
type Clock interface {
	// Now returns the current time
	Now() time.Time

	// AfterFunc schedules f to run after d and returns a handle to it
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable, resettable scheduled call
type Timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

// SystemClock implements Clock on top of the time package
type SystemClock struct{}

// NewSystemClock creates the production clock
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

func (c *SystemClock) Now() time.Time {
	return time.Now()
}

func (c *SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
