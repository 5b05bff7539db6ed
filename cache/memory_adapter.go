package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryAdapter implements Cache using an in-memory map (thread-safe,
// for tests and single-process deployments).
type MemoryAdapter struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

type memoryItem struct {
	value      string
	expiration int64
}

// NewMemoryAdapter creates a new in-memory cache adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{items: make(map[string]memoryItem)}
}

func (m *MemoryAdapter) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[key]
	if !ok || (item.expiration > 0 && time.Now().UnixNano() > item.expiration) {
		return "", fmt.Errorf("key not found: %s", key)
	}

	return item.value, nil
}

func (m *MemoryAdapter) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiration int64
	if ttl > 0 {
		expiration = time.Now().Add(ttl).UnixNano()
	}

	m.items[key] = memoryItem{
		value:      fmt.Sprint(value),
		expiration: expiration,
	}

	return nil
}

func (m *MemoryAdapter) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *MemoryAdapter) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.Get(ctx, key)
	return err == nil, nil
}

func (m *MemoryAdapter) GetOrSet(ctx context.Context, key string, ttl time.Duration, fn func() (any, error)) (string, error) {
	val, err := m.Get(ctx, key)
	if err == nil {
		return val, nil
	}

	res, err := fn()
	if err != nil {
		return "", err
	}

	if err := m.Set(ctx, key, res, ttl); err != nil {
		return "", err
	}

	return fmt.Sprint(res), nil
}

func (m *MemoryAdapter) Flush(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]memoryItem)
	return nil
}
