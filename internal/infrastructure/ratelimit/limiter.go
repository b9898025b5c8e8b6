// Package ratelimit implements fixed-window request limiters keyed by client.
package ratelimit

import (
	"context"
	"time"
)

// Limiter reports whether a request for key is allowed at now and, if not,
// how long the caller should wait.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (bool, time.Duration, error)
}
