// Package retry implements a bounded retry-with-backoff executor shared by
// every destination adapter. Adapters inject failure-specific recovery logic
// through the policy's IsRetryable predicate, which may mutate captured
// state before the next attempt.
package retry

import (
	"context"
	"math"
	"time"
)

// Policy parameterizes one retried operation. A Policy value is owned by a
// single call for its duration and is never shared.
type Policy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	BackoffFactor float64
	MaxDelay      time.Duration

	// IsRetryable gates retries and is the hook where adapters mutate the
	// next attempt's input. Nil means every error is retryable.
	IsRetryable func(err error) bool

	// OnRetry is invoked before sleeping, with the upcoming attempt number
	// (1-based), the error that triggered it, and the computed delay.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Delay returns the backoff delay after the given zero-based attempt,
// capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	factor := p.BackoffFactor
	if factor <= 0 {
		factor = 2.0
	}
	d := time.Duration(float64(p.InitialDelay) * math.Pow(factor, float64(attempt)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do runs op until it succeeds, the retry budget is exhausted, or the policy
// declares the error non-retryable. The last error is returned unmodified.
func Do(ctx context.Context, op func() error, p Policy) error {
	attempt := 0
	for {
		err := op()
		if err == nil {
			return nil
		}

		if attempt >= p.MaxRetries {
			return err
		}
		if p.IsRetryable != nil && !p.IsRetryable(err) {
			return err
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		attempt++
	}
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, op func() (T, error), p Policy) (T, error) {
	var result T
	err := Do(ctx, func() error {
		v, err := op()
		if err != nil {
			return err
		}
		result = v
		return nil
	}, p)
	return result, err
}
