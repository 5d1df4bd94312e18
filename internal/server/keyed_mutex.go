package server

import "sync"

// keyedMutex provides one mutex per drop ID so retrieval's
// check-then-increment is atomic per drop without serializing
// unrelated drops. Entries are refcounted and removed when the last
// holder unlocks.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (m *keyedMutex) Lock(key string) {
	m.mu.Lock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &keyedLock{}
		m.locks[key] = lock
	}
	lock.refs++
	m.mu.Unlock()

	lock.mu.Lock()
}

func (m *keyedMutex) Unlock(key string) {
	m.mu.Lock()
	lock, ok := m.locks[key]
	if !ok {
		m.mu.Unlock()
		return
	}
	lock.refs--
	if lock.refs <= 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()

	lock.mu.Unlock()
}
