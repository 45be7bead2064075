// Package cache provides caching implementations for shelf permission
// verdicts.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/xraph/shelf"
)

// Compile-time interface check.
var _ shelf.Cache = (*Memory)(nil)

// Memory is an in-memory verdict cache with TTL-based expiration.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	maxSize int
}

type entry struct {
	allowed   bool
	expiresAt time.Time
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the cache entry time-to-live.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithMaxSize sets the maximum number of cache entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*entry),
		ttl:     5 * time.Minute,
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetCheck returns a cached verdict.
func (m *Memory) GetCheck(_ context.Context, key string) (bool, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return false, false
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return false, false
	}
	return e.allowed, true
}

// SetCheck stores a verdict.
func (m *Memory) SetCheck(_ context.Context, key string, allowed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Evict if at capacity.
	if len(m.entries) >= m.maxSize {
		m.evictExpired()
		if len(m.entries) >= m.maxSize {
			m.evictOne()
		}
	}

	m.entries[key] = &entry{
		allowed:   allowed,
		expiresAt: time.Now().Add(m.ttl),
	}
}

// InvalidateObject removes every verdict whose key mentions the object
// URI. Keys are built by shelf.CheckKey, which embeds each bound pair as an
// "objectID#permission" segment.
func (m *Memory) InvalidateObject(_ context.Context, objectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	needle := objectID + "#"
	for k := range m.entries {
		if strings.Contains(k, needle) {
			delete(m.entries, k)
		}
	}
}

func (m *Memory) evictExpired() {
	now := time.Now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

func (m *Memory) evictOne() {
	var oldestKey string
	var oldest time.Time
	for k, e := range m.entries {
		if oldestKey == "" || e.expiresAt.Before(oldest) {
			oldestKey = k
			oldest = e.expiresAt
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}
