package db

import (
	"context"
	"strings"
	"sync"
)

// MemKV is a straw-man in-memory KV (for testing!)
type MemKV struct {
	mu   sync.RWMutex
	data map[string]string
}

// InitMemKV returns an empty in-memory KV.
func InitMemKV() *MemKV {
	return &MemKV{data: make(map[string]string)}
}

func (m *MemKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[key]
	if !ok {
		return "", ErrNoRecord
	}
	return val, nil
}

func (m *MemKV) GetByPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]string)
	for key, val := range m.data {
		if strings.HasPrefix(key, prefix) {
			result[key] = val
		}
	}
	return result, nil
}

func (m *MemKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Clear empties the store.
func (m *MemKV) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]string)
}
