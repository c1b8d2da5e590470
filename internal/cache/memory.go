package cache

import (
	"context"
	"sync"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// Memory is an in-process domain.Cache. It backs the match mode when Redis
// is not configured, and tests.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
}

// Get returns the value for key, or domain.ErrNotFound when absent or
// expired. Expired entries are dropped on read.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, domain.ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores value under key for ttl.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memEntry{value: stored, expiresAt: m.now().Add(ttl)}
	return nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Compile-time interface check.
var _ domain.Cache = (*Memory)(nil)
