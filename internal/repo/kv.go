package repo

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by KV.Get when the key has never been written.
var ErrNotFound = errors.New("key not found")

// KV is the minimal key/value contract the state repository needs.
// Implementations must be safe for concurrent use and honor ctx.
type KV interface {
	// Get returns the stored value, or ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) (string, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key, value string) error
}

// MemoryKV is a process-local KV used by tests and STORE_BACKEND=memory.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

// Get implements KV.
func (m *MemoryKV) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set implements KV.
func (m *MemoryKV) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

var _ KV = (*MemoryKV)(nil)
