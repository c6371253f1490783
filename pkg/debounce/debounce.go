// Package debounce provides a trailing-edge debounced task. Several
// components share the pattern of "something changed, do the expensive thing
// once the changes settle": snapshot persistence, sync pushes, and the AI
// automation triggers all run behind one of these with different delays.
package debounce

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of Trigger calls into a single invocation of fn
// after delay has elapsed with no further triggers. Only the trailing call in
// a burst fires. Safe for concurrent use.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	timer   *time.Timer
	stopped bool
}

// New returns a Debouncer that runs fn delay after the last Trigger.
func New(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger arms (or re-arms) the timer. A trigger during the wait window
// restarts it, so fn observes the state after the burst ends.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// TriggerIf arms the timer only when cond returns true, cancelling any
// pending run otherwise. Used by automation to drop a queued run when the
// watched note stops qualifying.
func (d *Debouncer) TriggerIf(cond func() bool) {
	if cond() {
		d.Trigger()
		return
	}
	d.Cancel()
}

// Cancel drops any pending run without stopping the debouncer.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Flush runs fn immediately if a run is pending, then clears the timer.
// Used at shutdown so a pending snapshot is not lost.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	pending := d.timer != nil && d.timer.Stop()
	d.timer = nil
	d.mu.Unlock()
	if pending {
		d.fn()
	}
}

// Stop cancels any pending run and rejects further triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
