package wizard

import "time"

// DebounceInterval is how long rapid successive edits are coalesced before
// a change notification fires. Purely a smoothing measure; correctness never
// depends on it.
const DebounceInterval = 100 * time.Millisecond

// Debouncer coalesces bursts of Trigger calls into a single callback once
// the interval has elapsed without a new trigger.
type Debouncer struct {
	clock    Clock
	interval time.Duration
	fn       func()
	timer    Timer
}

// NewDebouncer creates a debouncer that invokes fn after interval of quiet
func NewDebouncer(clock Clock, interval time.Duration, fn func()) *Debouncer {
	return &Debouncer{
		clock:    clock,
		interval: interval,
		fn:       fn,
	}
}

// Trigger records an edit. The callback fires interval after the last
// trigger in a burst.
func (d *Debouncer) Trigger() {
	if d.fn == nil {
		return
	}
	if d.timer == nil {
		d.timer = d.clock.AfterFunc(d.interval, d.fn)
		return
	}
	d.timer.Reset(d.interval)
}

// Stop cancels any pending callback
func (d *Debouncer) Stop() {
	if d.timer != nil {
		d.timer.Stop()
	}
}
