// Package rollback records compensating actions for external side effects
// so a multi-step flow can undo completed steps when a later one fails.
package rollback

import (
	"context"
	"log/slog"
)

type step struct {
	name string
	undo func(ctx context.Context) error
}

// Stack is not safe for concurrent use; each flow owns its own.
type Stack struct {
	logger *slog.Logger
	steps  []step
}

func New(logger *slog.Logger) *Stack {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stack{logger: logger}
}

// Push records the compensation for a step that just succeeded.
func (s *Stack) Push(name string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, step{name: name, undo: undo})
}

// Discard forgets all pending compensations once the flow has committed.
func (s *Stack) Discard() {
	s.steps = nil
}

// Unwind runs pending compensations newest first on a context that ignores
// cancellation of ctx. Failures are logged and do not stop the unwind. It
// returns the names of the compensations that failed.
func (s *Stack) Unwind(ctx context.Context) []string {
	ctx = context.WithoutCancel(ctx)

	var failed []string
	for i := len(s.steps) - 1; i >= 0; i-- {
		st := s.steps[i]
		if err := runStep(ctx, st); err != nil {
			s.logger.ErrorContext(ctx, "compensation failed",
				slog.String("step", st.name),
				slog.String("error", err.Error()),
			)
			failed = append(failed, st.name)
			continue
		}
		s.logger.InfoContext(ctx, "compensation applied", slog.String("step", st.name))
	}
	s.steps = nil
	return failed
}

func runStep(ctx context.Context, st step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return st.undo(ctx)
}

type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return "compensation panicked"
}
