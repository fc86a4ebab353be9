package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/metrics"
)

// stage describes how one per-record step is applied to a batch.
type stage struct {
	name     string
	eligible func(*creative.Record) bool
	run      func(context.Context, *creative.Record) error
	produced func(*creative.Record) bool
	event    creative.EventType
}

// apply runs st over recs in order. Item failures are recorded on the record
// and counted; they never stop the batch. Records are modified in place.
func (e *Engine) apply(ctx context.Context, st stage, recs []creative.Record) creative.StageCounts {
	start := time.Now()
	defer func() { metrics.ObserveStageDuration(st.name, time.Since(start)) }()

	var counts creative.StageCounts
	for i := range recs {
		if ctx.Err() != nil {
			counts.Skipped += len(recs) - i
			break
		}
		rec := &recs[i]
		if !st.eligible(rec) {
			counts.Skipped++
			continue
		}
		if err := st.run(ctx, rec); err != nil {
			counts.Failed++
			rec.LastError = err.Error()
			e.logger.Warn("stage item failed",
				zap.String("stage", st.name),
				zap.String("ad_id", rec.ID),
				zap.Error(err),
			)
			continue
		}
		if !st.produced(rec) {
			counts.Skipped++
			continue
		}
		counts.Processed++
		if st.event != "" {
			e.notify(ctx, creative.Event{Type: st.event, Record: rec})
		}
	}
	e.logger.Info("stage finished",
		zap.String("stage", st.name),
		zap.Int("processed", counts.Processed),
		zap.Int("failed", counts.Failed),
		zap.Int("skipped", counts.Skipped),
	)
	return counts
}

// Scrape collects records for the given competitors. A partial result is
// returned together with the error of the competitors that failed.
func (e *Engine) Scrape(ctx context.Context, competitors []creative.Competitor, minDaysActive int) ([]creative.Record, error) {
	if e.deps.Scraper == nil {
		return nil, notConfigured(creative.StageScrape)
	}
	if len(competitors) == 0 {
		return nil, creative.NewStageError(creative.ErrScrape, creative.StageScrape, "", errors.New("no competitors selected"))
	}
	e.logger.Info("starting scrape", zap.Int("competitors", len(competitors)), zap.Int("min_days", minDaysActive))
	recs, err := e.deps.Scraper.Scrape(ctx, competitors, minDaysActive)
	e.logger.Info("scrape finished", zap.Int("ads", len(recs)), zap.Bool("partial", err != nil))
	return recs, err
}

// Download fetches media for every record that references some.
func (e *Engine) Download(ctx context.Context, recs []creative.Record) (creative.StageCounts, error) {
	if e.deps.Downloader == nil {
		return creative.StageCounts{}, notConfigured(creative.StageDownload)
	}
	return e.apply(ctx, stage{
		name:     creative.StageDownload,
		eligible: func(r *creative.Record) bool { return r.MediaURL != "" },
		run:      e.deps.Downloader.Download,
		produced: func(r *creative.Record) bool { return r.LocalPath != "" },
	}, recs), nil
}

// Transcribe transcribes every downloaded media file.
func (e *Engine) Transcribe(ctx context.Context, recs []creative.Record) (creative.StageCounts, error) {
	if e.deps.Transcriber == nil {
		return creative.StageCounts{}, notConfigured(creative.StageTranscribe)
	}
	return e.apply(ctx, stage{
		name:     creative.StageTranscribe,
		eligible: func(r *creative.Record) bool { return r.LocalPath != "" },
		run:      e.deps.Transcriber.Transcribe,
		produced: func(r *creative.Record) bool { return r.Transcript != "" },
	}, recs), nil
}

// Analyze runs the analyzer over every record with a transcript.
func (e *Engine) Analyze(ctx context.Context, recs []creative.Record, kind creative.AnalysisType) (creative.StageCounts, error) {
	if e.deps.Analyzer == nil {
		return creative.StageCounts{}, notConfigured(creative.StageAnalyze)
	}
	if kind == "" {
		kind = e.cfg.AnalysisType
	}
	return e.apply(ctx, stage{
		name:     creative.StageAnalyze,
		eligible: func(r *creative.Record) bool { return r.Transcript != "" },
		run: func(ctx context.Context, r *creative.Record) error {
			return e.deps.Analyzer.Analyze(ctx, r, kind)
		},
		produced: func(r *creative.Record) bool { return r.Analysis != nil },
		event:    creative.EventAnalysisComplete,
	}, recs), nil
}

// Rewrite generates scripts for every record with a transcript.
func (e *Engine) Rewrite(ctx context.Context, recs []creative.Record, brand creative.Brand) (creative.StageCounts, error) {
	if e.deps.Rewriter == nil {
		return creative.StageCounts{}, notConfigured(creative.StageRewrite)
	}
	brand = e.brand(brand)
	return e.apply(ctx, stage{
		name:     creative.StageRewrite,
		eligible: func(r *creative.Record) bool { return r.Transcript != "" },
		run: func(ctx context.Context, r *creative.Record) error {
			return e.deps.Rewriter.Rewrite(ctx, r, brand)
		},
		produced: func(r *creative.Record) bool { return r.Script != nil },
		event:    creative.EventScriptReady,
	}, recs), nil
}

// Store uploads each record's media and artifacts, upserts the record into
// every record store and writes the daily summary. Upload failures are
// reported but do not prevent the upsert.
func (e *Engine) Store(ctx context.Context, recs []creative.Record) (creative.StageCounts, error) {
	start := time.Now()
	defer func() { metrics.ObserveStageDuration(creative.StageStore, time.Since(start)) }()

	var (
		counts creative.StageCounts
		errs   []error
	)
	for i := range recs {
		if ctx.Err() != nil {
			counts.Skipped += len(recs) - i
			errs = append(errs, fmt.Errorf("store canceled: %w", ctx.Err()))
			break
		}
		rec := &recs[i]
		if err := e.upload(ctx, rec); err != nil {
			e.logger.Warn("artifact upload failed", zap.String("ad_id", rec.ID), zap.Error(err))
			errs = append(errs, err)
		}

		out := *rec
		out.Status = out.Status.Advance(creative.StatusStored)
		if err := e.upsert(ctx, out); err != nil {
			counts.Failed++
			rec.LastError = err.Error()
			metrics.ObserveStageItem(creative.StageStore, "failed")
			e.logger.Warn("record upsert failed", zap.String("ad_id", rec.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		*rec = out
		counts.Processed++
		metrics.ObserveStageItem(creative.StageStore, "success")
	}

	if err := e.storeSummary(ctx, recs); err != nil {
		errs = append(errs, err)
	}
	e.logger.Info("storage finished", zap.Int("stored", counts.Processed), zap.Int("failed", counts.Failed))
	return counts, errors.Join(errs...)
}

func (e *Engine) upsert(ctx context.Context, rec creative.Record) error {
	var errs []error
	for _, store := range e.deps.Records {
		if err := store.UpsertRecord(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return creative.NewStageError(creative.ErrStorage, creative.StageStore, rec.ID, errors.Join(errs...))
}

func (e *Engine) storeSummary(ctx context.Context, recs []creative.Record) error {
	if len(e.deps.Summaries) == 0 {
		return nil
	}
	summary := DailySummary(e.deps.Clock.Now(), recs)
	var errs []error
	for _, store := range e.deps.Summaries {
		if err := store.UpsertDailySummary(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return creative.NewStageError(creative.ErrStorage, creative.StageStore, "", fmt.Errorf("daily summary: %w", errors.Join(errs...)))
}
