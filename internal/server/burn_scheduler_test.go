package server

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDeleteSchedulerFires(t *testing.T) {
	scheduler := newDeleteScheduler()
	defer scheduler.Stop()

	fired := make(chan struct{})
	scheduler.Schedule("drop-1", 5*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("scheduled deletion never fired")
	}
	if n := scheduler.Pending(); n != 0 {
		t.Errorf("pending = %d after firing, want 0", n)
	}
}

func TestDeleteSchedulerCancel(t *testing.T) {
	scheduler := newDeleteScheduler()
	defer scheduler.Stop()

	var fired atomic.Bool
	scheduler.Schedule("drop-1", 10*time.Millisecond, func() { fired.Store(true) })
	scheduler.Cancel("drop-1")

	time.Sleep(30 * time.Millisecond)
	if fired.Load() {
		t.Error("cancelled deletion fired anyway")
	}
	if n := scheduler.Pending(); n != 0 {
		t.Errorf("pending = %d after cancel, want 0", n)
	}
}

func TestDeleteSchedulerRescheduleResets(t *testing.T) {
	scheduler := newDeleteScheduler()
	defer scheduler.Stop()

	var count atomic.Int32
	scheduler.Schedule("drop-1", 5*time.Millisecond, func() { count.Add(1) })
	scheduler.Schedule("drop-1", 5*time.Millisecond, func() { count.Add(1) })

	time.Sleep(30 * time.Millisecond)
	if got := count.Load(); got != 1 {
		t.Errorf("deletion fired %d times, want 1", got)
	}
}

func TestDeleteSchedulerStopPreventsNewTimers(t *testing.T) {
	scheduler := newDeleteScheduler()

	var fired atomic.Bool
	scheduler.Schedule("drop-1", 5*time.Millisecond, func() { fired.Store(true) })
	scheduler.Stop()
	scheduler.Schedule("drop-2", time.Millisecond, func() { fired.Store(true) })

	time.Sleep(20 * time.Millisecond)
	if fired.Load() {
		t.Error("timer fired after Stop")
	}
}
