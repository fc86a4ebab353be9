package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/queue/memory"
)

type recordingRunner struct {
	mu    sync.Mutex
	runs  []creative.Request
	fail  map[string]error
	panic map[string]bool
	seen  chan string
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{fail: map[string]error{}, panic: map[string]bool{}, seen: make(chan string, 10)}
}

func (r *recordingRunner) Run(ctx context.Context, req creative.Request) (creative.RunSummary, error) {
	r.mu.Lock()
	r.runs = append(r.runs, req)
	r.mu.Unlock()
	defer func() { r.seen <- req.RunID }()
	if r.panic[req.RunID] {
		panic("boom")
	}
	if err := r.fail[req.RunID]; err != nil {
		return creative.RunSummary{Status: "error"}, err
	}
	if _, ok := ctx.Deadline(); ok {
		return creative.RunSummary{Status: "complete", Message: "deadline"}, nil
	}
	return creative.RunSummary{Status: "complete"}, nil
}

func TestWorkerRunsQueuedRequestsInOrder(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := memory.NewQueue(4)
	runner := newRecordingRunner()
	w := New(1, q, runner, Config{}, zap.NewNop())
	go w.Run(ctx)

	for _, id := range []string{"run-1", "run-2"} {
		require.NoError(t, q.Enqueue(ctx, creative.Request{RunID: id, Action: creative.ActionFull}))
	}

	for _, want := range []string{"run-1", "run-2"} {
		select {
		case got := <-runner.seen:
			require.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatalf("run %s not executed", want)
		}
	}
}

func TestWorkerSurvivesFailuresAndPanics(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := memory.NewQueue(4)
	runner := newRecordingRunner()
	runner.fail["bad"] = errors.New("scrape failed")
	runner.panic["crash"] = true
	w := New(1, q, runner, Config{RunTimeout: time.Minute}, zap.NewNop())
	go w.Run(ctx)

	for _, id := range []string{"bad", "crash", "good"} {
		require.NoError(t, q.Enqueue(ctx, creative.Request{RunID: id}))
	}
	got := make([]string, 0, 3)
	for range 3 {
		select {
		case id := <-runner.seen:
			got = append(got, id)
		case <-time.After(time.Second):
			t.Fatalf("only saw %v", got)
		}
	}
	require.Equal(t, []string{"bad", "crash", "good"}, got)
}

func TestWorkerStopsWhenQueueCloses(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(1)
	w := New(1, q, newRecordingRunner(), Config{}, nil)
	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()
	q.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after queue close")
	}
}
