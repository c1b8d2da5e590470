package cache

import (
	"context"
	"sync"
	"time"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// MemoryLock is an in-process domain.LockManager for single-node runs and
// tests. Locks expire at their TTL like the Redis implementation, so a
// crashed holder cannot wedge a key forever.
type MemoryLock struct {
	mu    sync.Mutex
	held  map[string]time.Time
	now   func() time.Time
	seq   int
	owner map[string]int
}

// NewMemoryLock creates an empty in-memory lock manager.
func NewMemoryLock() *MemoryLock {
	return &MemoryLock{
		held:  make(map[string]time.Time),
		owner: make(map[string]int),
		now:   time.Now,
	}
}

// Acquire takes the lock for key or returns domain.ErrLockHeld. The returned
// unlock only releases the caller's own acquisition.
func (m *MemoryLock) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if exp, ok := m.held[key]; ok && m.now().Before(exp) {
		return nil, domain.ErrLockHeld
	}
	m.seq++
	token := m.seq
	m.held[key] = m.now().Add(ttl)
	m.owner[key] = token

	released := false
	unlock := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if released {
			return
		}
		released = true
		if m.owner[key] == token {
			delete(m.held, key)
			delete(m.owner, key)
		}
	}
	return unlock, nil
}

// Compile-time interface check.
var _ domain.LockManager = (*MemoryLock)(nil)
