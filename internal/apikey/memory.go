package apikey

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps keys in a map.  Used by the memory driver and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]Record // id → record
}

var _ Admin = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]Record)}
}

func (m *MemoryStore) Lookup(_ context.Context, keyHash, tenantID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.keys {
		if r.KeyHash == keyHash && r.TenantID == tenantID && r.Active {
			cp := r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Touch(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.keys[id]
	if !ok {
		return ErrNotFound
	}
	ts := at.UTC()
	r.LastUsedAt = &ts
	m.keys[id] = r
	return nil
}

func (m *MemoryStore) Create(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[rec.ID] = *rec
	return nil
}

func (m *MemoryStore) Revoke(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.keys[id]
	if !ok {
		return ErrNotFound
	}
	r.Active = false
	m.keys[id] = r
	return nil
}

func (m *MemoryStore) ListByTenant(_ context.Context, tenantID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, 4)
	for _, r := range m.keys {
		if r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Get returns a copy of the record with id, for tests and tooling.
func (m *MemoryStore) Get(id string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.keys[id]
	return r, ok
}
