// Package memory provides a bounded in-process run queue.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/queue"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan creative.Request
	closeMu sync.RWMutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan creative.Request, capacity),
	}
}

// Enqueue pushes a request into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, req creative.Request) error {
	q.closeMu.RLock()
	defer q.closeMu.RUnlock()
	if q.closed {
		return queue.ErrClosed
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- req:
		return nil
	}
}

// TryEnqueue pushes a request without blocking.
func (q *Queue) TryEnqueue(req creative.Request) error {
	q.closeMu.RLock()
	defer q.closeMu.RUnlock()
	if q.closed {
		return queue.ErrClosed
	}
	select {
	case q.ch <- req:
		return nil
	default:
		return queue.ErrFull
	}
}

// Dequeue pops the next request, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (creative.Request, error) {
	select {
	case <-ctx.Done():
		return creative.Request{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case req, ok := <-q.ch:
		if !ok {
			return creative.Request{}, queue.ErrClosed
		}
		return req, nil
	}
}

// Len reports the number of queued requests.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close closes the underlying channel for shutdown. Queued requests can still
// be dequeued.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
