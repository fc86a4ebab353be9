package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/pipeline/fakes"
)

type recordingSubmitter struct {
	mu   sync.Mutex
	reqs []creative.Request
	err  error
}

func (r *recordingSubmitter) Submit(req creative.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.reqs = append(r.reqs, req)
	return nil
}

func (r *recordingSubmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reqs)
}

func TestNewRejectsBadExpression(t *testing.T) {
	t.Parallel()

	_, err := New("every tuesday", &recordingSubmitter{}, &fakes.IDs{}, fakes.Clock{}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every tuesday")
}

func TestNewAcceptsStandardAndDescriptors(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"0 6 * * *", "@daily", "@every 1h"} {
		s, err := New(expr, &recordingSubmitter{}, &fakes.IDs{}, fakes.Clock{}, zap.NewNop())
		require.NoError(t, err, expr)
		assert.True(t, s.Enabled())
	}
}

func TestTriggerSubmitsFullRun(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	sub := &recordingSubmitter{}
	s, err := New("@daily", sub, &fakes.IDs{}, fakes.Clock{T: now}, zap.NewNop())
	require.NoError(t, err)

	s.trigger()

	require.Len(t, sub.reqs, 1)
	req := sub.reqs[0]
	assert.Equal(t, creative.ActionFull, req.Action)
	assert.Equal(t, Source, req.Source)
	assert.Equal(t, "run-1", req.RunID)
	assert.Equal(t, now, req.Submitted)
}

func TestTriggerSurvivesFullQueue(t *testing.T) {
	t.Parallel()

	sub := &recordingSubmitter{err: errors.New("queue enqueue: queue full")}
	s, err := New("@daily", sub, &fakes.IDs{}, fakes.Clock{}, zap.NewNop())
	require.NoError(t, err)

	s.trigger()
	assert.Zero(t, sub.count())
}

func TestRunFiresAndStops(t *testing.T) {
	t.Parallel()

	sub := &recordingSubmitter{}
	s, err := New("@every 1s", sub, &fakes.IDs{}, fakes.Clock{}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	require.Eventually(t, func() bool { return sub.count() >= 1 }, 3*time.Second, 50*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestDisabledSchedulerBlocksUntilDone(t *testing.T) {
	t.Parallel()

	s, err := New("  ", &recordingSubmitter{}, &fakes.IDs{}, fakes.Clock{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, s.Enabled())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)
}
