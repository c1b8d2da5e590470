package domain

import (
	"context"
	"time"
)

// Cache is a byte-value cache with per-key TTL. Implementations return
// ErrNotFound on a miss or an expired key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// LockManager provides mutual exclusion across processes. The scheduler uses
// it to guarantee at most one run per venue in flight.
type LockManager interface {
	// Acquire returns ErrLockHeld when another holder owns the key. The
	// returned unlock is safe to call more than once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}
