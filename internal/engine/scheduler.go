package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// PollFunc runs one poll cycle. done stops the scheduler; a non-nil err
// marks the cycle as a transient failure and switches the next delay to
// the backoff policy.
type PollFunc func(ctx context.Context) (done bool, err error)

// Scheduler drives poll cycles at a fixed cadence, falling back to
// exponential backoff while reads fail. Nodes are often briefly
// unreachable during block production, so a failed read is never fatal
// on its own.
type Scheduler struct {
	interval time.Duration
	policy   *backoff.ExponentialBackOff
	log      *zap.Logger
}

// NewScheduler builds a scheduler polling at interval. Failed cycles are
// retried after backoffBase, doubling up to backoffMax; budget bounds the
// total time spent in a failing streak (zero means unbounded).
func NewScheduler(interval, backoffBase, backoffMax, budget time.Duration, log *zap.Logger) *Scheduler {
	p := backoff.NewExponentialBackOff()
	p.InitialInterval = backoffBase
	p.MaxInterval = backoffMax
	p.MaxElapsedTime = budget
	p.Multiplier = 2
	p.RandomizationFactor = 0.25
	return &Scheduler{interval: interval, policy: p, log: log}
}

// Run invokes poll immediately, then once per interval. After a failed
// cycle the next delay comes from the backoff policy; any successful
// cycle resets the policy to base. Returns nil when poll reports done,
// ctx.Err() on cancellation, or a wrapped error when the retry budget is
// exhausted.
func (s *Scheduler) Run(ctx context.Context, poll PollFunc) error {
	s.policy.Reset()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		done, err := poll(ctx)
		if done {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := s.interval
		if err != nil {
			delay = s.policy.NextBackOff()
			if delay == backoff.Stop {
				return fmt.Errorf("retry budget exhausted: %w", err)
			}
			s.log.Warn("poll failed, backing off",
				zap.Duration("delay", delay),
				zap.Error(err))
		} else {
			s.policy.Reset()
		}
		timer.Reset(delay)
	}
}
