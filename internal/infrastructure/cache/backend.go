// Package cache holds rendered page payloads and the generation counters that
// invalidate them.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Backend.Get for absent or expired keys.
var ErrMiss = errors.New("cache miss")

// Backend is a byte-oriented key/value store with an atomic counter.
// A zero ttl keeps the value until it is overwritten.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}
