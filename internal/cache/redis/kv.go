package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coingraphai/eventgraph-ethdenver-2026-sub001/internal/domain"
)

// keyPrefix namespaces every cache key so a shared Redis instance stays
// legible.
const keyPrefix = "eventgraph:"

// KV implements domain.Cache as plain Redis string keys with TTL.
type KV struct {
	rdb *redis.Client
}

// NewKV creates a KV cache backed by the given Client.
func NewKV(c *Client) *KV {
	return &KV{rdb: c.Underlying()}
}

// Get returns the value for key, or domain.ErrNotFound on a miss.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := k.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get %s: %w", key, err)
	}
	return data, nil
}

// Set stores value under key for ttl.
func (k *KV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := k.rdb.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (k *KV) Delete(ctx context.Context, key string) error {
	if err := k.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis: delete %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.Cache = (*KV)(nil)
