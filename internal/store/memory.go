package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"deaddrop/internal/models"
)

// MemoryStore is an in-memory DropStore used by tests and by the service
// layer when no database is configured. One write lock guards the record
// table and the codename index together, so the two can never drift.
type MemoryStore struct {
	mu        sync.RWMutex
	drops     map[string]*models.DeadDrop
	codenames map[string]string // codename -> drop id
	events    map[string][]models.DropEvent
	nextEvent int64
}

var _ DropStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drops:     make(map[string]*models.DeadDrop),
		codenames: make(map[string]string),
		events:    make(map[string][]models.DropEvent),
	}
}

func (m *MemoryStore) CreateDrop(_ context.Context, drop *models.DeadDrop) error {
	if drop == nil {
		return fmt.Errorf("drop is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.drops[drop.ID]; ok {
		return fmt.Errorf("UNIQUE constraint failed: drops.id")
	}
	if _, ok := m.codenames[drop.Codename]; ok {
		return fmt.Errorf("UNIQUE constraint failed: drops.codename")
	}

	clone := cloneDrop(drop)
	m.drops[drop.ID] = clone
	m.codenames[drop.Codename] = drop.ID
	return nil
}

func (m *MemoryStore) GetDrop(_ context.Context, id string) (*models.DeadDrop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	drop, ok := m.drops[id]
	if !ok {
		return nil, nil
	}
	return cloneDrop(drop), nil
}

func (m *MemoryStore) GetDropByCodename(_ context.Context, codename string) (*models.DeadDrop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.codenames[codename]
	if !ok {
		return nil, nil
	}
	return cloneDrop(m.drops[id]), nil
}

func (m *MemoryStore) CodenameExists(codename string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.codenames[codename]
	return ok, nil
}

func (m *MemoryStore) RecordRetrieval(_ context.Context, id, status string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop, ok := m.drops[id]
	if !ok {
		return nil
	}
	drop.RetrievalCount++
	if drop.FirstRetrievedAt == nil {
		stamp := at
		drop.FirstRetrievedAt = &stamp
	}
	stamp := at
	drop.LastRetrievedAt = &stamp
	drop.Status = status
	return nil
}

func (m *MemoryStore) SetStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if drop, ok := m.drops[id]; ok {
		drop.Status = status
	}
	return nil
}

func (m *MemoryStore) DeleteDrop(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop, ok := m.drops[id]
	if !ok {
		return nil
	}
	delete(m.codenames, drop.Codename)
	delete(m.drops, id)
	return nil
}

func (m *MemoryStore) AppendEvent(_ context.Context, event *models.DropEvent) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextEvent++
	event.ID = m.nextEvent
	m.events[event.DropID] = append(m.events[event.DropID], *event)
	return nil
}

func (m *MemoryStore) ListEvents(_ context.Context, dropID string) ([]models.DropEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := m.events[dropID]
	out := make([]models.DropEvent, len(events))
	copy(out, events)
	return out, nil
}

func (m *MemoryStore) ListSweepable(_ context.Context, now time.Time) ([]*models.DeadDrop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var due []*models.DeadDrop
	for _, drop := range m.drops {
		if drop.Status == models.StatusBurned || drop.IsExpired(now) {
			due = append(due, cloneDrop(drop))
		}
	}
	return due, nil
}

func (m *MemoryStore) StatusCounts(_ context.Context) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[string]int)
	for _, drop := range m.drops {
		counts[drop.Status]++
	}
	return counts, nil
}

func cloneDrop(drop *models.DeadDrop) *models.DeadDrop {
	clone := *drop
	if drop.Tags != nil {
		clone.Tags = append([]string(nil), drop.Tags...)
	}
	if drop.FirstRetrievedAt != nil {
		t := *drop.FirstRetrievedAt
		clone.FirstRetrievedAt = &t
	}
	if drop.LastRetrievedAt != nil {
		t := *drop.LastRetrievedAt
		clone.LastRetrievedAt = &t
	}
	return &clone
}
