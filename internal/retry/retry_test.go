package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func instant(context.Context, time.Duration) error { return nil }

func TestDoStopsOnFirstSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	attempts, err := Do(context.Background(), NewFixed(3, time.Second), instant, nil, func(context.Context, int) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
	require.Equal(t, 2, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	t.Parallel()

	var waits []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	var notified []int
	attempts, err := Do(context.Background(), NewFixed(3, 3*time.Second), sleep,
		func(_ error, attempt int) { notified = append(notified, attempt) },
		func(context.Context, int) error { return errors.New("boom") })

	require.EqualError(t, err, "boom")
	require.Equal(t, 3, attempts)
	require.Equal(t, []int{1, 2, 3}, notified)
	require.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, waits)
}

func TestDoHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts, err := Do(ctx, NewFixed(5, time.Hour), nil, nil, func(context.Context, int) error {
		return errors.New("fail")
	})
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, attempts)
}

func TestFixedPolicy(t *testing.T) {
	t.Parallel()

	p := NewFixed(0, time.Second)
	require.Equal(t, 1, p.Attempts)
	require.False(t, p.ShouldRetry(errors.New("x"), 1))
	require.False(t, NewFixed(3, 0).ShouldRetry(nil, 1))
	require.False(t, NewFixed(3, 0).ShouldRetry(context.Canceled, 1))
	require.True(t, NewFixed(3, 0).ShouldRetry(context.DeadlineExceeded, 2))
	require.Equal(t, time.Second, p.Backoff(7))
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	require.NoError(t, SleepContext(context.Background(), time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
	require.ErrorIs(t, SleepContext(ctx, 0), context.Canceled)
}
