// Package cache stores JSON-encoded values with a TTL, in process memory or
// in Redis. A miss and a decode failure look the same to callers.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Store is implemented by Memory and Redis.
type Store interface {
	// Get unmarshals the value under key into dest and reports a hit.
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type memoryItem struct {
	data    []byte
	expires time.Time
}

// Memory is a Store local to one process.
type Memory struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{items: map[string]memoryItem{}, now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string, dest any) bool {
	m.mu.Lock()
	item, ok := m.items[key]
	if ok && !item.expires.IsZero() && !m.now().Before(item.expires) {
		delete(m.items, key)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	return json.Unmarshal(item.data, dest) == nil
}

// Set stores value; a ttl of zero never expires.
func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	item := memoryItem{data: data}
	if ttl > 0 {
		item.expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.items[key] = item
	m.mu.Unlock()
	return nil
}

func (m *Memory) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}
