// Package debounce runs the latest scheduled function once its delay has
// passed without a newer schedule.
package debounce

import (
	"sync"
	"time"

	"github.com/samirrijal/planpresso/internal/pkg/clock"
)

// Token identifies one scheduled run. Only the latest token ever fires.
type Token uint64

// Debouncer holds at most one pending function.
type Debouncer struct {
	clock clock.Clock
	delay time.Duration

	mu      sync.Mutex
	gen     Token
	timer   clock.Timer
	pending func()
}

// New creates a Debouncer. A nil clock means the real one.
func New(c clock.Clock, delay time.Duration) *Debouncer {
	if c == nil {
		c = clock.Real()
	}
	return &Debouncer{clock: c, delay: delay}
}

// Delay returns the configured quiet period.
func (d *Debouncer) Delay() time.Duration { return d.delay }

// Schedule replaces any pending function with fn and restarts the delay.
func (d *Debouncer) Schedule(fn func()) Token {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.gen++
	gen := d.gen
	d.pending = fn
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
	return gen
}

// Cancel drops the pending function without running it.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	had := d.pending != nil
	d.stopLocked()
	d.gen++
	return had
}

// Flush runs the pending function now, on the calling goroutine.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.pending
	d.stopLocked()
	d.gen++
	d.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Pending reports whether a function is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Current returns the token of the latest schedule.
func (d *Debouncer) Current() Token {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}

func (d *Debouncer) fire(gen Token) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	fn()
}
