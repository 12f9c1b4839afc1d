package reconcile

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of push events into a single
// re-fetch-and-merge pass. Self-originated events use a longer window than a
// collaborator's so the store does not fight the user's own fast edit
// sequences; a newer qualifying event always cancels and restarts the
// pending timer (never queues a second fire).
type Debouncer struct {
	selfDelay  time.Duration
	otherDelay time.Duration
	fire       func()

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	running bool
}

type DebouncerOpts struct {
	// SelfDelay is the window for events echoing the current user's own
	// edits. Zero means the 2s default.
	SelfDelay time.Duration
	// OtherDelay is the window for collaborator edits. Zero means the 500ms
	// default.
	OtherDelay time.Duration
}

func NewDebouncer(opts DebouncerOpts, fire func()) *Debouncer {
	selfDelay := opts.SelfDelay
	if selfDelay <= 0 {
		selfDelay = 2 * time.Second
	}
	otherDelay := opts.OtherDelay
	if otherDelay <= 0 {
		otherDelay = 500 * time.Millisecond
	}
	return &Debouncer{selfDelay: selfDelay, otherDelay: otherDelay, fire: fire}
}

// Notify schedules (or reschedules) the fire callback.
func (d *Debouncer) Notify(selfOriginated bool) {
	if d == nil {
		return
	}
	delay := d.otherDelay
	if selfOriginated {
		delay = d.selfDelay
	}

	d.mu.Lock()
	d.pending = true
	if d.timer == nil {
		d.timer = time.AfterFunc(delay, d.onTimer)
		d.mu.Unlock()
		return
	}
	d.timer.Reset(delay)
	d.mu.Unlock()
}

// Stop cancels any pending fire.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
}

func (d *Debouncer) onTimer() {
	d.mu.Lock()
	if d.running {
		// A fire is in-flight; reschedule to pick up the pending burst.
		if d.timer != nil {
			d.timer.Reset(d.otherDelay)
		}
		d.mu.Unlock()
		return
	}
	if !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.running = true
	d.mu.Unlock()

	d.fire()

	d.mu.Lock()
	d.running = false
	if d.pending && d.timer != nil {
		d.timer.Reset(d.otherDelay)
	}
	d.mu.Unlock()
}
