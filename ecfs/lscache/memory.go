package lscache

import (
	"sort"
	"strings"
	"sync"
)

// MemoryStore is a Store that lives in memory only.
// It is the default and never outlives the process.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

// Get returns the value at `key` or ErrNoSuchKey.
func (ms *MemoryStore) Get(key string) ([]byte, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	data, ok := ms.data[key]
	if !ok {
		return nil, ErrNoSuchKey
	}

	return data, nil
}

// Put stores `data` at `key`.
func (ms *MemoryStore) Put(key string, data []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.data[key] = data
	return nil
}

// Keys returns all keys with `prefix`, sorted lexically.
func (ms *MemoryStore) Keys(prefix string) ([]string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	keys := []string{}
	for key := range ms.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)
	return keys, nil
}

// Invalidate forgets all keys starting with `prefix`.
func (ms *MemoryStore) Invalidate(prefix string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for key := range ms.data {
		if strings.HasPrefix(key, prefix) {
			delete(ms.data, key)
		}
	}

	return nil
}

// Close is a no-op for the memory store.
func (ms *MemoryStore) Close() error {
	return nil
}
