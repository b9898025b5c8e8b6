package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"horizon/internal/domain/events"
)

// PublishEventJob delivers one domain event.
type PublishEventJob struct {
	publisher events.Publisher
	event     events.Event
}

func (j *PublishEventJob) Execute(ctx context.Context) error {
	return j.publisher.Publish(ctx, j.event)
}

func (j *PublishEventJob) Description() string {
	return fmt.Sprintf("publish %s for user %s", j.event.Type, j.event.UserID)
}

// SessionSweeper deletes expired sessions.
type SessionSweeper interface {
	SweepExpiredSessions(ctx context.Context) (int64, error)
}

type SweepSessionsJob struct {
	sweeper SessionSweeper
	logger  *slog.Logger
}

func (j *SweepSessionsJob) Execute(ctx context.Context) error {
	n, err := j.sweeper.SweepExpiredSessions(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		j.logger.InfoContext(ctx, "expired sessions removed", slog.Int64("count", n))
	}
	return nil
}

func (j *SweepSessionsJob) Description() string {
	return "sweep expired sessions"
}

// AsyncPublisher hands events to the worker pool so delivery never delays
// the request that produced them.
type AsyncPublisher struct {
	pool *WorkerPool
	next events.Publisher
}

var _ events.Publisher = (*AsyncPublisher)(nil)

func NewAsyncPublisher(pool *WorkerPool, next events.Publisher) *AsyncPublisher {
	return &AsyncPublisher{pool: pool, next: next}
}

func (p *AsyncPublisher) Publish(_ context.Context, event events.Event) error {
	return p.pool.Submit(&PublishEventJob{publisher: p.next, event: event})
}

// RunEvery submits the session sweep on every tick until ctx is done.
func RunEvery(ctx context.Context, pool *WorkerPool, interval time.Duration, sweeper SessionSweeper, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	job := &SweepSessionsJob{sweeper: sweeper, logger: logger}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := pool.Submit(job); err != nil {
				logger.Warn("session sweep not scheduled", slog.String("error", err.Error()))
			}
		}
	}
}
