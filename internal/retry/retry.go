// Package retry implements the bounded retry loop shared by pipeline steps.
// Each step supplies its own attempt budget and delay schedule; the loop
// shape and context handling live here.
package retry

import (
	"context"
	"time"
)

// DelayFunc decides whether a failed attempt should be retried and how long
// to wait first. attempt counts from 1 and names the attempt that just
// failed.
type DelayFunc func(attempt int, err error) (time.Duration, bool)

// BackoffDelay returns base doubled attempt-1 times. A maxDelay greater than
// zero caps the result; a non-positive base yields zero.
func BackoffDelay(base, maxDelay time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if maxDelay > 0 && delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// Policy bounds how an operation is re-attempted.
type Policy struct {
	// MaxAttempts below 1 is treated as 1.
	MaxAttempts int
	// Delay decides retryability per failure. nil never retries.
	Delay DelayFunc
	// Sleeper replaces the context-aware timer between attempts. Tests use
	// it to skip real waits.
	Sleeper func(time.Duration)
	// OnRetry observes every scheduled retry before the wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Do runs op until it succeeds, the policy declines to retry, attempts are
// exhausted, or ctx ends. It returns the number of attempts made and the
// last error.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) (int, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt, err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if attempt == attempts || p.Delay == nil {
			return attempt, lastErr
		}
		delay, ok := p.Delay(attempt, lastErr)
		if !ok {
			return attempt, lastErr
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, lastErr)
		}
		if err := p.sleep(ctx, delay); err != nil {
			return attempt, err
		}
	}
	return attempts, lastErr
}

func (p Policy) sleep(ctx context.Context, delay time.Duration) error {
	if p.Sleeper != nil {
		p.Sleeper(delay)
		return ctx.Err()
	}
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
