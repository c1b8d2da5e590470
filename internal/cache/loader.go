// Package cache provides a TTL cache abstraction with single-flight refresh.
// Values carry a logical expiry inside a longer-lived physical entry, so a
// refresh in progress never blocks readers of the prior value.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// envelope wraps a cached value with its logical expiry.
type envelope struct {
	ExpiresAt time.Time       `json:"expires_at"`
	Value     json.RawMessage `json:"value"`
}

// RefreshFunc recomputes the value for a key.
type RefreshFunc func(ctx context.Context) ([]byte, error)

// Loader reads through a Cache with per-key single-flight refresh. A cold
// miss blocks on one shared recompute; a logically stale hit returns the
// prior value immediately and refreshes in the background.
type Loader struct {
	cache domain.Cache
	group singleflight.Group
	log   *slog.Logger
	now   func() time.Time
}

// NewLoader creates a Loader over the given cache.
func NewLoader(c domain.Cache, log *slog.Logger) *Loader {
	return &Loader{
		cache: c,
		log:   log.With("component", "cache"),
		now:   time.Now,
	}
}

// Get returns the cached value for key, recomputing it with refresh when
// missing or stale. Concurrent callers for the same key share one in-flight
// recompute.
func (l *Loader) Get(ctx context.Context, key string, ttl time.Duration, refresh RefreshFunc) ([]byte, error) {
	raw, err := l.cache.Get(ctx, key)
	if err == nil {
		var env envelope
		if jerr := json.Unmarshal(raw, &env); jerr == nil {
			if l.now().Before(env.ExpiresAt) {
				return env.Value, nil
			}
			// Stale but present: serve it and refresh off the request path.
			go l.refreshAsync(key, ttl, refresh)
			return env.Value, nil
		}
		// A corrupt entry falls through to a blocking refresh.
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("cache: get %s: %w", key, err)
	}

	v, err, _ := l.group.Do(key, func() (any, error) {
		return l.recompute(ctx, key, ttl, refresh)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate drops a key so the next Get recomputes.
func (l *Loader) Invalidate(ctx context.Context, key string) error {
	return l.cache.Delete(ctx, key)
}

func (l *Loader) refreshAsync(key string, ttl time.Duration, refresh RefreshFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err, _ := l.group.Do(key, func() (any, error) {
		return l.recompute(ctx, key, ttl, refresh)
	})
	if err != nil {
		l.log.Warn("background refresh failed", "key", key, "error", err)
	}
}

func (l *Loader) recompute(ctx context.Context, key string, ttl time.Duration, refresh RefreshFunc) ([]byte, error) {
	value, err := refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("cache: refresh %s: %w", key, err)
	}
	env := envelope{ExpiresAt: l.now().Add(ttl), Value: value}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("cache: marshal envelope %s: %w", key, err)
	}
	// Physical TTL outlives logical expiry so stale reads have something to
	// serve during refresh.
	if err := l.cache.Set(ctx, key, raw, 2*ttl); err != nil {
		l.log.Warn("cache write failed", "key", key, "error", err)
	}
	return value, nil
}
