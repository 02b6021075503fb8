package tokenstore

import (
	"context"
	"sync"
)

// MemoryStore keeps the pair in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	pair Pair
	set  bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(_ context.Context, pair Pair) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.pair, m.set = pair, true
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(context.Context) (Pair, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pair, m.set, nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	m.pair, m.set = Pair{}, false
	m.mu.Unlock()
	return nil
}
