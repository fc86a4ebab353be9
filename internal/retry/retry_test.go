package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func noSleep(context.Context, time.Duration) error { return nil }

func TestDoRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	p := NewPolicy(3, time.Millisecond, time.Millisecond)
	p.sleep = noSleep
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("status 503")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	t.Parallel()

	p := NewPolicy(2, time.Millisecond, time.Millisecond)
	p.sleep = noSleep
	calls := 0
	boom := errors.New("boom")
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})

	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, calls)
}

func TestDoHonoursPermanentErrors(t *testing.T) {
	t.Parallel()

	p := NewPolicy(5, time.Millisecond, time.Millisecond)
	p.sleep = noSleep
	calls := 0
	denied := errors.New("401 unauthorized")
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return Stop(denied)
	})

	require.Equal(t, denied, err)
	require.Equal(t, 1, calls)
}

func TestDoAbortsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPolicy(3, time.Hour, time.Hour)
	err := p.Do(ctx, func(context.Context) error { return errors.New("flaky") })

	require.ErrorIs(t, err, context.Canceled)
}

func TestBackoffIsBounded(t *testing.T) {
	t.Parallel()

	p := NewPolicy(3, 100*time.Millisecond, 400*time.Millisecond)
	for attempt := 0; attempt < 10; attempt++ {
		d := p.Backoff(attempt)
		require.LessOrEqual(t, d, 400*time.Millisecond)
		require.GreaterOrEqual(t, d, 50*time.Millisecond)
	}
}

func TestShouldRetrySkipsContextErrors(t *testing.T) {
	t.Parallel()

	p := NewPolicy(3, 0, 0)
	require.False(t, p.ShouldRetry(nil, 1))
	require.False(t, p.ShouldRetry(context.DeadlineExceeded, 1))
	require.True(t, p.ShouldRetry(errors.New("x"), 1))
	require.False(t, p.ShouldRetry(errors.New("x"), 3))
}
