// Package scheduler runs background work for the API: best-effort event
// delivery and periodic housekeeping.
package scheduler

import "context"

// Job is a unit of work executed by the worker pool.
type Job interface {
	Execute(ctx context.Context) error
	Description() string
}
