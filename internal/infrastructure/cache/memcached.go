package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

func NewMemcached(server string) *memcache.Client {
	return memcache.New(server)
}

// MemcachedBackend shares entries and counters across instances.
type MemcachedBackend struct {
	client *memcache.Client
}

func NewMemcachedBackend(client *memcache.Client) *MemcachedBackend {
	return &MemcachedBackend{client: client}
}

func (b *MemcachedBackend) Get(_ context.Context, key string) ([]byte, error) {
	item, err := b.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("memcached get %s: %w", key, err)
	}
	return item.Value, nil
}

func (b *MemcachedBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := b.client.Set(&memcache.Item{Key: key, Value: value, Expiration: int32(ttl / time.Second)}); err != nil {
		return fmt.Errorf("memcached set %s: %w", key, err)
	}
	return nil
}

// Incr seeds a missing counter with 1. A concurrent seed loses the Add race
// and falls back to incrementing.
func (b *MemcachedBackend) Incr(_ context.Context, key string) (int64, error) {
	n, err := b.client.Increment(key, 1)
	if err == nil {
		return int64(n), nil
	}
	if !errors.Is(err, memcache.ErrCacheMiss) {
		return 0, fmt.Errorf("memcached incr %s: %w", key, err)
	}

	err = b.client.Add(&memcache.Item{Key: key, Value: []byte("1")})
	if err == nil {
		return 1, nil
	}
	if !errors.Is(err, memcache.ErrNotStored) {
		return 0, fmt.Errorf("memcached seed %s: %w", key, err)
	}

	n, err = b.client.Increment(key, 1)
	if err != nil {
		return 0, fmt.Errorf("memcached incr %s: %w", key, err)
	}
	return int64(n), nil
}
