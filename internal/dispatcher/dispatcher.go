// Package dispatcher manages worker fan-out over the run queue.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/queue"
	"github.com/JakeFAU/creative-intel/internal/worker"
)

// Dispatcher fans out queue work to a pool of workers.
type Dispatcher struct {
	queue   queue.Queue
	workers []*worker.Worker
}

// New creates a Dispatcher.
func New(q queue.Queue, workers []*worker.Worker) *Dispatcher {
	return &Dispatcher{
		queue:   q,
		workers: workers,
	}
}

// Run starts all workers and blocks until the context finishes and every
// in-flight run has returned.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
}

// Submit queues req without blocking. A full queue is reported as queue.ErrFull.
func (d *Dispatcher) Submit(req creative.Request) error {
	if err := d.queue.TryEnqueue(req); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}
