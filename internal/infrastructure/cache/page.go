package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Broadcaster tells other instances that a path was revalidated.
type Broadcaster interface {
	Broadcast(ctx context.Context, path string) error
}

// PageCache stores page payloads per path and viewer. Revalidating a path
// bumps its generation, so every earlier entry becomes unreachable and ages
// out on its own TTL.
type PageCache struct {
	backend     Backend
	ttl         time.Duration
	broadcaster Broadcaster
	logger      *slog.Logger
}

// NewPageCache builds a page cache. broadcaster may be nil when the backend
// is already shared between instances.
func NewPageCache(backend Backend, ttl time.Duration, broadcaster Broadcaster, logger *slog.Logger) *PageCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageCache{backend: backend, ttl: ttl, broadcaster: broadcaster, logger: logger}
}

func pageKey(path, viewer string, generation int64) string {
	return fmt.Sprintf("page:%s:%s:g%d", path, viewer, generation)
}

func generationKey(path string) string {
	return "page-gen:" + path
}

func (c *PageCache) generation(ctx context.Context, path string) (int64, error) {
	raw, err := c.backend.Get(ctx, generationKey(path))
	if errors.Is(err, ErrMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt generation for %s: %w", path, err)
	}
	return n, nil
}

// Get returns the payload cached for viewer and the generation of path it
// was looked up under. Callers that render on a miss pass that generation
// back to Set.
func (c *PageCache) Get(ctx context.Context, path, viewer string) (payload []byte, generation int64, ok bool, err error) {
	gen, err := c.generation(ctx, path)
	if err != nil {
		return nil, 0, false, err
	}
	payload, err = c.backend.Get(ctx, pageKey(path, viewer, gen))
	if errors.Is(err, ErrMiss) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, err
	}
	return payload, gen, true, nil
}

// Set stores payload under generation. A render that raced a revalidation
// carries the older generation and lands on a key no reader looks up.
func (c *PageCache) Set(ctx context.Context, path, viewer string, generation int64, payload []byte) error {
	return c.backend.Set(ctx, pageKey(path, viewer, generation), payload, c.ttl)
}

// RevalidatePath invalidates every cached rendering of path and, when a
// broadcaster is configured, notifies the other instances.
func (c *PageCache) RevalidatePath(ctx context.Context, path string) error {
	gen, err := c.backend.Incr(ctx, generationKey(path))
	if err != nil {
		return fmt.Errorf("revalidate %s: %w", path, err)
	}
	c.logger.DebugContext(ctx, "page revalidated", slog.String("path", path), slog.Int64("generation", gen))

	if c.broadcaster == nil {
		return nil
	}
	if err := c.broadcaster.Broadcast(ctx, path); err != nil {
		return fmt.Errorf("broadcast revalidation of %s: %w", path, err)
	}
	return nil
}

// InvalidateLocal applies a revalidation received from another instance
// without broadcasting it again.
func (c *PageCache) InvalidateLocal(path string) {
	if _, err := c.backend.Incr(context.Background(), generationKey(path)); err != nil {
		c.logger.Warn("local invalidation failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}
