package allocation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in memory, for demo mode and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	current *Settings
}

// NewMemoryStore creates an in-memory allocation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(ctx context.Context) (*Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return nil, ErrNotFound
	}
	cp := *m.current
	return &cp, nil
}

func (m *MemoryStore) Replace(ctx context.Context, next Settings) (*Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next.Version = 1
	if m.current != nil {
		next.Version = m.current.Version + 1
	}
	next.UpdatedAt = time.Now()
	m.current = &next

	cp := next
	return &cp, nil
}
