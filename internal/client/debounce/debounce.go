// Package debounce delays a callback until calls to it have been quiet for a
// fixed period. Only the last call in a burst is delivered; the earlier ones
// are dropped.
package debounce

import (
	"sync"
	"time"
)

type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	last    T
	running sync.WaitGroup
}

func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Call schedules fn(v) delay from now, replacing any pending call.
func (d *Debouncer[T]) Call(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.last, d.pending = v, true
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Stop drops the pending call, if any.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Flush runs the pending call now on the caller's goroutine. It reports
// whether there was one.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	v := d.last
	d.cancelLocked()
	d.mu.Unlock()
	d.fn(v)
	return true
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	// A timer that lost the race with Call, Stop or Flush is stale.
	if gen != d.gen || !d.pending {
		d.mu.Unlock()
		return
	}
	v := d.last
	d.pending = false
	d.timer = nil
	d.running.Add(1)
	d.mu.Unlock()
	defer d.running.Done()
	d.fn(v)
}

// Wait blocks until every timer-started fn has returned. Call it after Stop
// or Flush so no new ones can start.
func (d *Debouncer[T]) Wait() {
	d.running.Wait()
}

func (d *Debouncer[T]) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = false
	var zero T
	d.last = zero
}
