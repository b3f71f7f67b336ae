package transfer

import (
	"context"
	"fmt"
	"time"
)

// Governor bounds retries of destination operations with exponential
// backoff. Transient failures are retried up to MaxAttempts total
// attempts; permanent failures propagate immediately.
type Governor struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	sleep func(ctx context.Context, d time.Duration) error // overridable in tests
}

// NewGovernor creates a retry governor with the given attempt ceiling
// and backoff window.
func NewGovernor(maxAttempts int, baseDelay, maxDelay time.Duration) *Governor {
	return &Governor{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		sleep:       sleepCtx,
	}
}

// Execute runs op until it succeeds, fails permanently, or the attempt
// ceiling is reached. Before every re-attempt resync (if non-nil) runs
// first, so the caller can re-query destination state after an ambiguous
// outcome instead of blindly resending. Cancellation always wins over
// in-flight retries.
func (g *Governor) Execute(ctx context.Context, op func(context.Context) error, resync func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < g.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt > 0 {
			if err := g.wait(ctx, attempt); err != nil {
				return err
			}
			if resync != nil {
				if err := resync(ctx); err != nil {
					if !IsTransient(err) {
						return err
					}
					lastErr = err
					continue
				}
			}
		}
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("retry ceiling of %d attempts exhausted: %w", g.MaxAttempts, lastErr)
}

// wait blocks for the backoff delay of the given attempt, cancellably.
func (g *Governor) wait(ctx context.Context, attempt int) error {
	delay := g.BaseDelay << (attempt - 1)
	if g.MaxDelay > 0 && delay > g.MaxDelay {
		delay = g.MaxDelay
	}
	sleep := g.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	return sleep(ctx, delay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
