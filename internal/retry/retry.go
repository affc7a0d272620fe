package retry

import (
	"context"
	"fmt"
	"time"
)

// BackoffFunc maps a zero-based retry attempt to the delay taken before it.
type BackoffFunc func(attempt int) time.Duration

// Policy describes how a fallible operation is retried. The same primitive
// backs the storage, parser, and text-generation stages, which differ only
// in attempt counts, backoff shape, and what they consider retryable.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// Backoff returns the delay before retry n (n starts at 0 for the delay
	// between the first and second attempt).
	Backoff BackoffFunc
	// Retryable reports whether the error is worth another attempt. A nil
	// predicate retries everything.
	Retryable func(error) bool
	// Sleep is swapped out in tests to record backoff sequences. Nil means
	// a context-aware real sleep.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is invoked before each retry with the one-based number of
	// the attempt about to run. The first attempt never triggers it.
	OnRetry func(attempt int)
}

// Linear returns a backoff of base for the first retry, increasing by step
// for each retry after that.
func Linear(base, step time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		d := base + time.Duration(attempt)*step
		if d < 0 {
			return 0
		}
		return d
	}
}

// Exponential returns base << attempt, capped at max. A zero max means no cap.
func Exponential(base, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		d := base
		for i := 0; i < attempt; i++ {
			d *= 2
			if max > 0 && d >= max {
				return max
			}
		}
		if d < 0 {
			return 0
		}
		if max > 0 && d > max {
			return max
		}
		return d
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn under the policy and returns its result, the last error when
// attempts are exhausted, or the first non-retryable error immediately.
func Do[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var zero T
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			if p.OnRetry != nil {
				p.OnRetry(attempt + 1)
			}
			var delay time.Duration
			if p.Backoff != nil {
				delay = p.Backoff(attempt - 1)
			}
			if err := sleep(ctx, delay); err != nil {
				return zero, err
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if p.Retryable != nil && !p.Retryable(err) {
			return zero, err
		}
	}

	return zero, fmt.Errorf("exhausted %d attempts: %w", p.MaxAttempts, lastErr)
}
