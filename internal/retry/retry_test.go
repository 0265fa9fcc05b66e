package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return nil
	}, Policy{MaxRetries: 3, InitialDelay: time.Millisecond})

	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDo_ExhaustsBudget(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return boom
	}, Policy{MaxRetries: 2, InitialDelay: time.Millisecond})

	require.ErrorIs(t, err, boom)
	require.Equal(t, 3, calls, "initial attempt plus two retries")
}

func TestDo_ZeroRetriesMeansSingleAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return errors.New("boom")
	}, Policy{MaxRetries: 0})

	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return errors.New("fatal")
	}, Policy{
		MaxRetries:   5,
		InitialDelay: time.Millisecond,
		IsRetryable:  func(err error) bool { return false },
	})

	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestDo_IsRetryableMutationVisibleToNextAttempt(t *testing.T) {
	degraded := false
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if !degraded {
			return errors.New("rejected")
		}
		return nil
	}, Policy{
		MaxRetries:   1,
		InitialDelay: time.Millisecond,
		IsRetryable: func(err error) bool {
			degraded = true
			return true
		},
	})

	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.True(t, degraded)
}

func TestDo_OnRetryReportsAttemptAndDelay(t *testing.T) {
	var attempts []int
	var delays []time.Duration

	_ = Do(context.Background(), func() error {
		return errors.New("boom")
	}, Policy{
		MaxRetries:    2,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 2,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			attempts = append(attempts, attempt)
			delays = append(delays, delay)
		},
	})

	require.Equal(t, []int{1, 2}, attempts)
	require.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, delays)
}

func TestDo_ContextCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func() error {
		return errors.New("boom")
	}, Policy{MaxRetries: 3, InitialDelay: time.Hour})

	require.ErrorIs(t, err, context.Canceled)
}

func TestDelay_ExponentialGrowthCappedAtMax(t *testing.T) {
	p := Policy{
		InitialDelay:  time.Second,
		BackoffFactor: 2,
		MaxDelay:      5 * time.Second,
	}

	require.Equal(t, time.Second, p.Delay(0))
	require.Equal(t, 2*time.Second, p.Delay(1))
	require.Equal(t, 4*time.Second, p.Delay(2))
	require.Equal(t, 5*time.Second, p.Delay(3))
	require.Equal(t, 5*time.Second, p.Delay(10))
}

func TestDelay_DefaultFactor(t *testing.T) {
	p := Policy{InitialDelay: time.Second}
	require.Equal(t, 2*time.Second, p.Delay(1))
}

func TestDoValue_ReturnsValue(t *testing.T) {
	calls := 0
	v, err := DoValue(context.Background(), func() (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}, Policy{MaxRetries: 2, InitialDelay: time.Millisecond})

	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Equal(t, 2, calls)
}
