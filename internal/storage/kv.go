package storage

import (
	"encoding/json"
	"fmt"
	"sync"
)

// KV is the key/value persistence service the global store is built on.
// Get decodes the stored value into dst and reports whether the key existed.
// Update with a nil value removes the key.
type KV interface {
	Get(key string, dst any) (bool, error)
	Update(key string, value any) error
}

// MemoryKV keeps values JSON-encoded in memory, so callers never share
// slices with the store.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: map[string][]byte{}}
}

func (m *MemoryKV) Get(key string, dst any) (bool, error) {
	m.mu.Lock()
	raw, ok := m.values[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("kv decode %s: %w", key, err)
	}
	return true, nil
}

func (m *MemoryKV) Update(key string, value any) error {
	if value == nil {
		m.mu.Lock()
		delete(m.values, key)
		m.mu.Unlock()
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv encode %s: %w", key, err)
	}
	m.mu.Lock()
	m.values[key] = b
	m.mu.Unlock()
	return nil
}
