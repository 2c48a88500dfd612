// Package store keeps the key/value tree of the peer module emulator.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/robotalks/winot.go/pkg/bridge"
)

// Store persists values by full key path.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (bridge.Value, bool, error)
	Set(ctx context.Context, key string, v bridge.Value) error
	Delete(ctx context.Context, key string) error
	// DeleteTree removes every key under tree, or every key when tree is
	// empty, and returns the count of removed keys.
	DeleteTree(ctx context.Context, tree string) (int, error)
}

// Join builds the full key path of a key under tree.
func Join(tree, key string) string {
	if tree == "" {
		return key
	}
	return strings.TrimSuffix(tree, "/") + "/" + key
}

// MemoryStore keeps values in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]bridge.Value
}

// NewMemoryStore creates a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]bridge.Value)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string) (bridge.Value, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, key string, v bridge.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = v
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// DeleteTree implements Store.
func (m *MemoryStore) DeleteTree(_ context.Context, tree string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := Join(tree, "")
	var count int
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			delete(m.values, key)
			count++
		}
	}
	return count, nil
}

// Keys lists all keys in order.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for key := range m.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
