// Package pipeline runs the ad intelligence stages in sequence, persists the
// intermediate results files and reports run progress and notifications.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

// ErrNotConfigured is returned when a run needs a stage whose component was not wired.
var ErrNotConfigured = errors.New("stage not configured")

// ErrUnknownAction is returned for requests with an unsupported action.
var ErrUnknownAction = errors.New("unknown action")

// Dirs locates the results files written by the engine.
type Dirs struct {
	RawAds    string
	Processed string
}

// Config holds the run defaults applied when a request leaves a field empty.
type Config struct {
	Dirs          Dirs
	Competitors   []creative.Competitor
	MinDaysActive int
	AnalysisType  creative.AnalysisType
	Brand         creative.Brand
}

// Deps are the collaborators of the engine. Stage components may be nil when
// a deployment never runs that stage; Status, Clock and IDs are required.
type Deps struct {
	Scraper     creative.Scraper
	Downloader  creative.Downloader
	Transcriber creative.Transcriber
	Analyzer    creative.Analyzer
	Rewriter    creative.Rewriter
	Records     []creative.RecordStore
	Summaries   []creative.SummaryStore
	Media       creative.MediaStore
	Notifier    creative.Notifier
	Status      creative.StatusStore
	Clock       creative.Clock
	IDs         creative.IDGenerator
	Hasher      creative.Hasher
}

// Engine coordinates one or more pipeline runs. It is safe for concurrent use;
// overlapping runs share the status store and the last writer wins.
type Engine struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger

	uploadMu sync.Mutex
	uploaded map[string]string
}

// New validates the dependencies and builds an Engine.
func New(cfg Config, deps Deps, logger *zap.Logger) (*Engine, error) {
	if deps.Status == nil {
		return nil, fmt.Errorf("status store is required")
	}
	if deps.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if deps.IDs == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if cfg.Dirs.RawAds == "" || cfg.Dirs.Processed == "" {
		return nil, fmt.Errorf("raw ads and processed directories are required")
	}
	if cfg.AnalysisType == "" {
		cfg.AnalysisType = creative.AnalysisFull
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, deps: deps, logger: logger, uploaded: make(map[string]string)}, nil
}

// Status returns the latest run state.
func (e *Engine) Status(ctx context.Context) (creative.RunState, error) {
	state, err := e.deps.Status.Load(ctx)
	if err != nil {
		return creative.RunState{}, fmt.Errorf("load run state: %w", err)
	}
	return state, nil
}

func (e *Engine) notify(ctx context.Context, ev creative.Event) {
	if e.deps.Notifier == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.deps.Clock.Now()
	}
	if err := e.deps.Notifier.Notify(ctx, ev); err != nil {
		e.logger.Warn("notification failed", zap.String("event", string(ev.Type)), zap.Error(err))
	}
}

func notConfigured(stage string) error {
	return fmt.Errorf("%s: %w", stage, ErrNotConfigured)
}
