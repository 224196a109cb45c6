package registration

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in memory, for demo mode and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]*PendingRegistration
	refs map[string]string // reference -> ID
}

// NewMemoryStore creates an in-memory pending registration store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]*PendingRegistration),
		refs: make(map[string]string),
	}
}

func (m *MemoryStore) Create(ctx context.Context, reg *PendingRegistration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.refs[reg.Reference]; exists {
		return ErrConflict
	}
	cp := *reg
	cp.UpdatedAt = cp.CreatedAt
	m.byID[cp.ID] = &cp
	m.refs[cp.Reference] = cp.ID
	return nil
}

func (m *MemoryStore) GetByReference(ctx context.Context, reference string) (*PendingRegistration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.refs[reference]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *MemoryStore) Transition(ctx context.Context, id string, to Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	reg, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	if reg.Status != StatusPending {
		return ErrInvalidState
	}
	reg.Status = to
	reg.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) Discard(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	reg, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.refs, reg.Reference)
	delete(m.byID, id)
	return nil
}

func (m *MemoryStore) ListPendingOlderThan(ctx context.Context, age time.Duration, limit int) ([]*PendingRegistration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := time.Now().Add(-age)
	out := make([]*PendingRegistration, 0)
	for _, reg := range m.byID {
		if len(out) >= limit {
			break
		}
		if reg.Status == StatusPending && reg.CreatedAt.Before(cutoff) {
			cp := *reg
			out = append(out, &cp)
		}
	}
	return out, nil
}
