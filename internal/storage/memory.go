package storage

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemStore is an in-memory ObjectStore for tests and local seeding. It
// counts Get calls so tests can assert how often a loader reached
// storage.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	gets    atomic.Int64
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[string][]byte)}
}

// Put stores bytes under key.
func (m *MemStore) Put(key string, data []byte) {
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
}

// PutTemplate stores template source under the canonical template key.
func (m *MemStore) PutTemplate(storeID, path, source string) {
	m.Put(TemplateKey(storeID, path), []byte(source))
}

// Get returns the stored bytes or *NotFoundError.
func (m *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	m.gets.Add(1)

	m.mu.RLock()
	data, ok := m.objects[key]
	m.mu.RUnlock()

	if !ok {
		return nil, &NotFoundError{Key: key}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// GetCount reports how many Get calls the store has served.
func (m *MemStore) GetCount() int64 {
	return m.gets.Load()
}
