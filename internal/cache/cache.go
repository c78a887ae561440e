// Package cache stores rendered responses for a revalidation window.
package cache

import (
	"context"
	"sync"
	"time"
)

// Store holds opaque values for a TTL. A miss is (nil, false, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// entry stores one cached value with expiry.
type entry struct {
	expiresAt time.Time
	value     []byte
}

// Memory is an in-process Store. When MaxItems is exceeded, expired entries
// are evicted first and then arbitrary ones until the cap holds.
type Memory struct {
	MaxItems int

	now   func() time.Time
	mu    sync.RWMutex
	items map[string]entry
}

func NewMemory(maxItems int) *Memory {
	return &Memory{MaxItems: maxItems, now: time.Now, items: make(map[string]entry)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()
	if !ok || !m.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = entry{expiresAt: now.Add(ttl), value: value}

	if m.MaxItems > 0 && len(m.items) > m.MaxItems {
		for k, v := range m.items {
			if !now.Before(v.expiresAt) {
				delete(m.items, k)
			}
		}
		for k := range m.items {
			if len(m.items) <= m.MaxItems {
				break
			}
			if k == key {
				continue
			}
			delete(m.items, k)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
