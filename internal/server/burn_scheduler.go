package server

import (
	"sync"
	"time"
)

// deleteScheduler holds one cancellable timer per burned drop. Burns
// get a short grace period so the final retrieval response can finish
// before the row and carrier disappear; a restart loses the timers,
// which the retention sweeper covers by also sweeping burned drops.
type deleteScheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

func newDeleteScheduler() *deleteScheduler {
	return &deleteScheduler{timers: make(map[string]*time.Timer)}
}

// Schedule arms a deletion timer for the drop. Rescheduling an already
// armed drop resets the timer.
func (d *deleteScheduler) Schedule(dropID string, delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if timer, ok := d.timers[dropID]; ok {
		timer.Stop()
	}
	d.timers[dropID] = time.AfterFunc(delay, func() {
		d.mu.Lock()
		delete(d.timers, dropID)
		d.mu.Unlock()
		fn()
	})
}

// Cancel stops a pending deletion, if one is armed.
func (d *deleteScheduler) Cancel(dropID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if timer, ok := d.timers[dropID]; ok {
		timer.Stop()
		delete(d.timers, dropID)
	}
}

// Stop cancels every pending timer. Used on shutdown; pending burns
// fall through to the next sweep.
func (d *deleteScheduler) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for id, timer := range d.timers {
		timer.Stop()
		delete(d.timers, id)
	}
}

// Pending reports the number of armed timers.
func (d *deleteScheduler) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}
