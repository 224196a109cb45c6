package provisioning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coopcentral/coopcentral/internal/idgen"
	"github.com/coopcentral/coopcentral/internal/ledger"
)

// MemoryStore implements Store in memory, for demo mode and tests.
// CreateEntities validates the whole aggregate before making anything
// visible, giving the same all-or-nothing contract the Postgres store
// gets from a transaction.
type MemoryStore struct {
	mu           sync.RWMutex
	cooperatives map[string]*Cooperative
	regNumbers   map[string]string // reg number -> cooperative ID
	users        map[string]*User  // keyed by email
	leaders      map[string]*Leader
	intents      map[string]*Intent
	ledger       ledger.Store

	// failBeforeLedger injects a failure between entity staging and
	// the ledger write. Test hook only.
	failBeforeLedger func() error
}

// NewMemoryStore creates an in-memory provisioning store that records
// fee rows into ls.
func NewMemoryStore(ls ledger.Store) *MemoryStore {
	return &MemoryStore{
		cooperatives: make(map[string]*Cooperative),
		regNumbers:   make(map[string]string),
		users:        make(map[string]*User),
		leaders:      make(map[string]*Leader),
		intents:      make(map[string]*Intent),
		ledger:       ls,
	}
}

func (m *MemoryStore) BeginIntent(ctx context.Context, reference string) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	intent := &Intent{
		ID:        idgen.WithPrefix("intent_"),
		Reference: reference,
		CreatedAt: time.Now(),
	}
	m.intents[intent.ID] = intent
	return intent, nil
}

func (m *MemoryStore) CreateEntities(ctx context.Context, intentID string, e *Entities) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.intents[intentID]; !ok {
		return fmt.Errorf("%w: intent %s", ErrNotFound, intentID)
	}

	// Validate every conflict before writing anything.
	if e.Cooperative != nil {
		if _, exists := m.regNumbers[e.Cooperative.RegNumber]; exists {
			return fmt.Errorf("%w: registration number %s", ErrConflict, e.Cooperative.RegNumber)
		}
	}
	for _, u := range e.Users {
		if _, exists := m.users[u.Email]; exists {
			return fmt.Errorf("%w: email %s", ErrConflict, u.Email)
		}
	}

	if m.failBeforeLedger != nil {
		if err := m.failBeforeLedger(); err != nil {
			return err
		}
	}

	// The ledger write is the only step that can still fail; do it
	// before the maps become visible.
	if e.Fee != nil {
		if err := m.ledger.Record(ctx, e.Fee); err != nil {
			return err
		}
	}

	if e.Cooperative != nil {
		cp := *e.Cooperative
		m.cooperatives[cp.ID] = &cp
		m.regNumbers[cp.RegNumber] = cp.ID
	}
	for _, u := range e.Users {
		cp := *u
		m.users[cp.Email] = &cp
	}
	if e.Leader != nil {
		cp := *e.Leader
		m.leaders[cp.ID] = &cp
	}
	return nil
}

func (m *MemoryStore) MarkCommitted(ctx context.Context, intentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.intents[intentID]
	if !ok {
		return fmt.Errorf("%w: intent %s", ErrNotFound, intentID)
	}
	intent.Committed = true
	intent.CommittedAt = time.Now()
	return nil
}

func (m *MemoryStore) ListUncommitted(ctx context.Context, olderThan time.Duration) ([]*Intent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := time.Now().Add(-olderThan)
	var out []*Intent
	for _, intent := range m.intents {
		if !intent.Committed && intent.CreatedAt.Before(cutoff) {
			cp := *intent
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetCooperative(ctx context.Context, id string) (*Cooperative, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	coop, ok := m.cooperatives[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *coop
	return &cp, nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// Counts returns visible entity counts (test helper).
func (m *MemoryStore) Counts() (cooperatives, users, leaders int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cooperatives), len(m.users), len(m.leaders)
}
