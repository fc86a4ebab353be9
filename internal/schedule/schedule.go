// Package schedule submits full pipeline runs on a cron expression in server mode.
package schedule

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

// Source tags requests submitted by the scheduler.
const Source = "schedule"

// Submitter queues a request for a background worker.
type Submitter interface {
	Submit(req creative.Request) error
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler wraps a cron runner with a single full-pipeline entry.
type Scheduler struct {
	cron      *cron.Cron
	expr      string
	submitter Submitter
	ids       creative.IDGenerator
	clock     creative.Clock
	logger    *zap.Logger
}

// New parses expr (standard five fields or a descriptor such as "@daily").
// An empty expr yields a scheduler that never fires.
func New(expr string, submitter Submitter, ids creative.IDGenerator, clock creative.Clock, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		cron:      cron.New(cron.WithParser(parser)),
		expr:      strings.TrimSpace(expr),
		submitter: submitter,
		ids:       ids,
		clock:     clock,
		logger:    logger,
	}
	if s.expr == "" {
		return s, nil
	}
	if _, err := s.cron.AddFunc(s.expr, s.trigger); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", s.expr, err)
	}
	return s, nil
}

// Enabled reports whether an expression was configured.
func (s *Scheduler) Enabled() bool {
	return s.expr != ""
}

// Run starts the cron loop and blocks until ctx is done, then waits for a
// firing trigger to return.
func (s *Scheduler) Run(ctx context.Context) {
	if !s.Enabled() {
		<-ctx.Done()
		return
	}
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("full pipeline scheduled", zap.String("schedule", s.expr), zap.Time("next_run", e.Next))
	}
	<-ctx.Done()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) trigger() {
	id, err := s.ids.NewID()
	if err != nil {
		s.logger.Error("scheduled run id failed", zap.Error(err))
		return
	}
	req := creative.Request{
		RunID:     id,
		Action:    creative.ActionFull,
		Source:    Source,
		Submitted: s.clock.Now(),
	}
	if err := s.submitter.Submit(req); err != nil {
		s.logger.Warn("scheduled run not queued", zap.String("run_id", id), zap.Error(err))
		return
	}
	s.logger.Info("scheduled run queued", zap.String("run_id", id))
}
