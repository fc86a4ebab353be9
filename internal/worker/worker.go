// Package worker executes queued pipeline runs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/metrics"
	"github.com/JakeFAU/creative-intel/internal/queue"
)

// Runner executes one pipeline request.
type Runner interface {
	Run(ctx context.Context, req creative.Request) (creative.RunSummary, error)
}

// Config controls Worker behavior.
type Config struct {
	// RunTimeout bounds a single run. Zero means no limit.
	RunTimeout time.Duration
}

// Worker consumes run requests and executes them one at a time.
type Worker struct {
	id     int
	queue  queue.Queue
	runner Runner
	cfg    Config
	logger *zap.Logger
}

// New constructs a Worker.
func New(id int, q queue.Queue, runner Runner, cfg Config, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		id:     id,
		queue:  q,
		runner: runner,
		cfg:    cfg,
		logger: logger.With(zap.Int("worker", id)),
	}
}

// Run blocks, consuming queue items until the context finishes or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	for {
		req, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued run", zap.String("run_id", req.RunID), zap.String("action", string(req.Action)))
		w.process(ctx, req)
	}
}

// process runs one request. Panics are contained so a broken run never takes
// the worker down.
func (w *Worker) process(ctx context.Context, req creative.Request) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	runCtx := ctx
	if w.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.cfg.RunTimeout)
		defer cancel()
	}

	summary, err := w.safeRun(runCtx, req)
	if err != nil {
		w.logger.Error("run failed", zap.String("run_id", req.RunID), zap.Error(err))
		return
	}
	w.logger.Info("run finished",
		zap.String("run_id", req.RunID),
		zap.String("status", summary.Status),
		zap.Int("total_ads", summary.TotalAds),
	)
}

func (w *Worker) safeRun(ctx context.Context, req creative.Request) (summary creative.RunSummary, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("run panicked", zap.String("run_id", req.RunID), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("run %s panicked: %v", req.RunID, r)
		}
	}()
	return w.runner.Run(ctx, req)
}
