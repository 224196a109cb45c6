package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/coopcentral/coopcentral/internal/idgen"
)

// MemoryStore implements Store in memory, for demo mode and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	txs  []*Transaction
	refs map[string]*Transaction
}

// NewMemoryStore creates an in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{refs: make(map[string]*Transaction)}
}

func (m *MemoryStore) Record(ctx context.Context, tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tx.Reference != "" {
		if _, exists := m.refs[tx.Reference]; exists {
			return ErrDuplicateReference
		}
	}
	if tx.ID == "" {
		tx.ID = idgen.WithPrefix("txn_")
	}

	cp := *tx
	m.txs = append(m.txs, &cp)
	if cp.Reference != "" {
		m.refs[cp.Reference] = &cp
	}
	return nil
}

func (m *MemoryStore) GetByReference(ctx context.Context, reference string) (*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.refs[reference]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (m *MemoryStore) ListByType(ctx context.Context, t Type, before time.Time, beforeID string, limit int) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Insertion order doubles as chronological order here. A cursor
	// resumes after the row it names; if that row is unknown, the
	// timestamp half of the keyset still positions the page.
	byTimestamp := false
	start := len(m.txs) - 1
	if beforeID != "" {
		idx := -1
		for i := range m.txs {
			if m.txs[i].ID == beforeID {
				idx = i
				break
			}
		}
		if idx >= 0 {
			start = idx - 1
		} else {
			byTimestamp = true
		}
	}

	out := make([]*Transaction, 0, limit)
	for i := start; i >= 0 && len(out) < limit; i-- {
		tx := m.txs[i]
		if byTimestamp && !tx.CreatedAt.Before(before) {
			continue
		}
		if tx.Type == t && tx.Status == StatusSuccessful {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListByCooperative(ctx context.Context, cooperativeID string, limit int) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Transaction, 0, limit)
	for i := len(m.txs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.txs[i].CooperativeID == cooperativeID {
			cp := *m.txs[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Count returns the total number of recorded transactions (test helper).
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}
