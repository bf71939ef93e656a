package eventstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory event store for tests and single-process
// use. Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
	closed bool
}

// NewMemoryStore creates a new in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append implements Store.
func (m *MemoryStore) Append(_ context.Context, evt Event) error {
	if err := evt.Validate(); err != nil {
		return err
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	m.events = append(m.events, evt)
	return nil
}

// Query implements Store. Events are returned in insertion order,
// which callers must not rely on.
func (m *MemoryStore) Query(_ context.Context, experimentID string) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	out := make([]Event, 0, len(m.events))
	for _, evt := range m.events {
		if experimentID == "" || evt.ExperimentID == experimentID {
			out = append(out, evt)
		}
	}
	return out, nil
}

// ExperimentIDs implements Store.
func (m *MemoryStore) ExperimentIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	seen := make(map[string]struct{})
	for _, evt := range m.events {
		seen[evt.ExperimentID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.events = nil
	return nil
}

// Len returns the number of stored events. Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}
