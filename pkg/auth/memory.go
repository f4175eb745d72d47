package auth

import (
	"context"
	"sync"
)

// MemoryStore keeps the API key for the life of the process.
type MemoryStore struct {
	mu  sync.RWMutex
	key string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SaveKey implements KeyStore.
func (m *MemoryStore) SaveKey(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = key
	return nil
}

// LoadKey implements KeyStore.
func (m *MemoryStore) LoadKey(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.key == "" {
		return "", ErrKeyNotFound
	}
	return m.key, nil
}

// DeleteKey implements KeyStore.
func (m *MemoryStore) DeleteKey(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = ""
	return nil
}
