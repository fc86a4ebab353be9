// Package queue defines the run request queue shared by the webhook server
// and its workers.
package queue

import (
	"context"
	"errors"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

// ErrFull is returned by TryEnqueue when the queue has no free slot.
var ErrFull = errors.New("queue full")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("queue closed")

// Queue buffers run requests between the HTTP handlers and the workers.
type Queue interface {
	Enqueue(ctx context.Context, req creative.Request) error
	TryEnqueue(req creative.Request) error
	Dequeue(ctx context.Context) (creative.Request, error)
}
