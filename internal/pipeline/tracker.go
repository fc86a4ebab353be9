package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

// tracker mirrors the progress of one run into the status store. Save
// failures are logged only; status reporting never fails a run.
type tracker struct {
	store  creative.StatusStore
	clock  creative.Clock
	logger *zap.Logger
	state  creative.RunState
}

func (e *Engine) newTracker(ctx context.Context, req creative.Request) *tracker {
	now := e.deps.Clock.Now()
	t := &tracker{
		store:  e.deps.Status,
		clock:  e.deps.Clock,
		logger: e.logger.With(zap.String("run_id", req.RunID)),
		state: creative.RunState{
			RunID:     req.RunID,
			Action:    req.Action,
			State:     creative.RunRunning,
			Counts:    make(map[string]creative.StageCounts),
			StartedAt: &now,
		},
	}
	t.save(ctx)
	return t
}

func (t *tracker) begin(ctx context.Context, stage string) {
	t.state.CurrentStage = stage
	t.save(ctx)
}

func (t *tracker) end(ctx context.Context, stage string, counts creative.StageCounts) {
	t.state.CurrentStage = ""
	t.state.LastCompletedStage = stage
	t.state.Counts[stage] = counts
	t.save(ctx)
}

func (t *tracker) finish(ctx context.Context, err error) {
	now := t.clock.Now()
	t.state.FinishedAt = &now
	t.state.CurrentStage = ""
	t.state.State = creative.RunCompleted
	if err != nil {
		t.state.State = creative.RunFailed
		t.state.LastError = err.Error()
	}
	t.save(ctx)
}

func (t *tracker) save(ctx context.Context) {
	t.state.UpdatedAt = t.clock.Now()
	if err := t.store.Save(context.WithoutCancel(ctx), t.state.Clone()); err != nil {
		t.logger.Warn("save run state failed", zap.Error(err))
	}
}
