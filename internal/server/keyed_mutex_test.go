package server

import (
	"sync"
	"testing"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	m := newKeyedMutex()

	const workers = 16
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Lock("drop-1")
			counter++
			m.Unlock("drop-1")
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("counter = %d, want %d", counter, workers)
	}
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	m := newKeyedMutex()

	m.Lock("a")
	m.Lock("b")
	m.Unlock("a")
	m.Unlock("b")

	m.mu.Lock()
	remaining := len(m.locks)
	m.mu.Unlock()
	if remaining != 0 {
		t.Errorf("lock table has %d stale entries", remaining)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	m := newKeyedMutex()

	m.Lock("a")
	acquired := make(chan struct{})
	go func() {
		m.Lock("b")
		close(acquired)
		m.Unlock("b")
	}()

	<-acquired
	m.Unlock("a")
}
