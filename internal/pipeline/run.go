package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/metrics"
	"github.com/JakeFAU/creative-intel/internal/storage/files"
)

// Summary status values.
const (
	SummaryComplete = "complete"
	SummaryError    = "error"
)

// RunFull runs every stage for the request and returns the run summary.
func (e *Engine) RunFull(ctx context.Context, req creative.Request) (creative.RunSummary, error) {
	req.Action = creative.ActionFull
	return e.Run(ctx, req)
}

// Run dispatches the request by action. Failures are reported in both the
// summary and the returned error.
func (e *Engine) Run(ctx context.Context, req creative.Request) (creative.RunSummary, error) {
	if req.Action == "" {
		req.Action = creative.ActionFull
	}
	if req.RunID == "" {
		id, err := e.deps.IDs.NewID()
		if err != nil {
			return creative.RunSummary{}, fmt.Errorf("run id: %w", err)
		}
		req.RunID = id
	}

	start := e.deps.Clock.Now()
	logger := e.logger.With(zap.String("run_id", req.RunID), zap.String("action", string(req.Action)))
	logger.Info("run started", zap.String("source", req.Source))

	tr := e.newTracker(ctx, req)
	var (
		summary creative.RunSummary
		err     error
	)
	err = e.ready(req.Action)
	switch {
	case err != nil:
	case req.Action == creative.ActionFull:
		summary, err = e.runFull(ctx, req, tr)
	case req.Action == creative.ActionScrape:
		summary, err = e.runScrape(ctx, req, tr)
	default:
		summary, err = e.runStage(ctx, req, tr)
	}

	summary.RunID = req.RunID
	summary.DurationSeconds = e.deps.Clock.Now().Sub(start).Seconds()
	if err != nil {
		summary.Status = SummaryError
		summary.Error = err.Error()
		logger.Error("run failed", zap.Error(err))
	} else {
		summary.Status = SummaryComplete
		logger.Info("run complete",
			zap.Int("total_ads", summary.TotalAds),
			zap.Int("successful", summary.Successful),
			zap.Float64("duration_seconds", summary.DurationSeconds),
		)
	}
	tr.finish(ctx, err)
	metrics.ObserveRun(string(req.Action), summary.Status)

	if req.Action == creative.ActionFull {
		e.notify(ctx, creative.Event{Type: creative.EventBatchComplete, Summary: &summary})
	}
	return summary, err
}

// ready reports the first stage the action needs that has no component, so a
// run fails before any work is done. Unknown actions are rejected here too.
func (e *Engine) ready(action creative.Action) error {
	need := map[creative.Action][]struct {
		name string
		ok   bool
	}{
		creative.ActionFull: {
			{creative.StageScrape, e.deps.Scraper != nil},
			{creative.StageDownload, e.deps.Downloader != nil},
			{creative.StageTranscribe, e.deps.Transcriber != nil},
			{creative.StageAnalyze, e.deps.Analyzer != nil},
			{creative.StageRewrite, e.deps.Rewriter != nil},
		},
		creative.ActionScrape:     {{creative.StageScrape, e.deps.Scraper != nil}},
		creative.ActionTranscribe: {{creative.StageTranscribe, e.deps.Transcriber != nil}},
		creative.ActionAnalyze:    {{creative.StageAnalyze, e.deps.Analyzer != nil}},
		creative.ActionRewrite:    {{creative.StageRewrite, e.deps.Rewriter != nil}},
	}
	stages, ok := need[action]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	for _, st := range stages {
		if !st.ok {
			return notConfigured(st.name)
		}
	}
	return nil
}

func (e *Engine) runFull(ctx context.Context, req creative.Request, tr *tracker) (creative.RunSummary, error) {
	recs, _, err := e.scrapePhase(ctx, req, tr)
	if err != nil {
		return creative.RunSummary{}, err
	}
	if len(recs) == 0 {
		return creative.RunSummary{Competitors: []string{}, Message: "No ads found to process"}, nil
	}

	steps := []struct {
		name string
		run  func() (creative.StageCounts, error)
	}{
		{creative.StageTranscribe, func() (creative.StageCounts, error) { return e.Transcribe(ctx, recs) }},
		{creative.StageAnalyze, func() (creative.StageCounts, error) { return e.Analyze(ctx, recs, req.AnalysisType) }},
		{creative.StageRewrite, func() (creative.StageCounts, error) { return e.Rewrite(ctx, recs, req.Brand) }},
		{creative.StageStore, func() (creative.StageCounts, error) { return e.Store(ctx, recs) }},
	}
	for _, step := range steps {
		tr.begin(ctx, step.name)
		counts, err := step.run()
		tr.end(ctx, step.name, counts)
		if err != nil && step.name != creative.StageStore {
			return creative.RunSummary{}, err
		}
		if err != nil {
			// Storage errors are per record and already counted.
			e.logger.Warn("storage reported errors", zap.Error(err))
		}
		if ctx.Err() != nil {
			return creative.RunSummary{}, fmt.Errorf("run canceled after %s: %w", step.name, ctx.Err())
		}
	}

	path, err := e.writeResults(e.cfg.Dirs.Processed, PipelineResults, recs)
	if err != nil {
		return creative.RunSummary{}, err
	}
	e.archive(ctx, path)

	ok := scripted(recs)
	return creative.RunSummary{
		TotalAds:    len(recs),
		Successful:  ok,
		Failed:      len(recs) - ok,
		Competitors: Competitors(recs),
		ResultsFile: path,
	}, nil
}

func (e *Engine) runScrape(ctx context.Context, req creative.Request, tr *tracker) (creative.RunSummary, error) {
	recs, path, err := e.scrapePhase(ctx, req, tr)
	if err != nil {
		return creative.RunSummary{}, err
	}
	out := creative.RunSummary{
		TotalAds:    len(recs),
		Successful:  len(recs),
		Competitors: Competitors(recs),
	}
	if len(recs) == 0 {
		out.Message = "No ads found to process"
		return out, nil
	}
	out.ResultsFile = path
	return out, nil
}

// scrapePhase scrapes, downloads, writes the scrape results file and
// announces every new ad. It returns the records and the results file path. Partial scrape failures are logged and the run
// goes on with what was collected.
func (e *Engine) scrapePhase(ctx context.Context, req creative.Request, tr *tracker) ([]creative.Record, string, error) {
	competitors := creative.SelectCompetitors(e.cfg.Competitors, req.Competitors)
	minDays := e.cfg.MinDaysActive
	if req.MinDaysActive != nil {
		minDays = *req.MinDaysActive
	}

	tr.begin(ctx, creative.StageScrape)
	recs, err := e.Scrape(ctx, competitors, minDays)
	tr.end(ctx, creative.StageScrape, creative.StageCounts{Processed: len(recs), Failed: errorCount(err)})
	if err != nil {
		if len(recs) == 0 || errors.Is(err, creative.ErrAuthentication) || errors.Is(err, ErrNotConfigured) {
			return nil, "", err
		}
		e.logger.Warn("scrape partially failed", zap.Int("ads", len(recs)), zap.Error(err))
	}
	if len(recs) == 0 {
		e.logger.Warn("no ads scraped")
		return nil, "", nil
	}

	if e.deps.Downloader != nil {
		tr.begin(ctx, creative.StageDownload)
		counts, _ := e.Download(ctx, recs)
		tr.end(ctx, creative.StageDownload, counts)
	}

	path, err := e.writeResults(e.cfg.Dirs.RawAds, ScrapeResults, recs)
	if err != nil {
		return nil, "", err
	}
	for i := range recs {
		e.notify(ctx, creative.Event{Type: creative.EventNewAd, Record: &recs[i]})
	}
	return recs, path, nil
}

// runStage runs one of the transcribe, analyze or rewrite stages over an
// earlier results file.
func (e *Engine) runStage(ctx context.Context, req creative.Request, tr *tracker) (creative.RunSummary, error) {
	var (
		dir, prefix, out string
		run              func([]creative.Record) (creative.StageCounts, error)
		stageName        string
	)
	switch req.Action {
	case creative.ActionTranscribe:
		dir, prefix, out, stageName = e.cfg.Dirs.RawAds, ScrapeResults, TranscribeResults, creative.StageTranscribe
		run = func(recs []creative.Record) (creative.StageCounts, error) { return e.Transcribe(ctx, recs) }
	case creative.ActionAnalyze:
		dir, prefix, out, stageName = e.cfg.Dirs.Processed, TranscribeResults, AnalyzeResults, creative.StageAnalyze
		run = func(recs []creative.Record) (creative.StageCounts, error) { return e.Analyze(ctx, recs, req.AnalysisType) }
	default:
		dir, prefix, out, stageName = e.cfg.Dirs.Processed, AnalyzeResults, RewriteResults, creative.StageRewrite
		run = func(recs []creative.Record) (creative.StageCounts, error) { return e.Rewrite(ctx, recs, req.Brand) }
	}

	recs, input, err := e.LoadInput(req.AdsFile, dir, prefix, req.AdIDs)
	if err != nil {
		return creative.RunSummary{}, err
	}
	e.logger.Info("loaded stage input", zap.String("file", input), zap.Int("ads", len(recs)))

	tr.begin(ctx, stageName)
	counts, err := run(recs)
	tr.end(ctx, stageName, counts)
	if err != nil {
		return creative.RunSummary{}, err
	}

	path, err := e.writeResults(e.cfg.Dirs.Processed, out, recs)
	if err != nil {
		return creative.RunSummary{}, err
	}
	return creative.RunSummary{
		TotalAds:    len(recs),
		Successful:  counts.Processed,
		Failed:      counts.Failed,
		Competitors: Competitors(recs),
		ResultsFile: path,
	}, nil
}

// LoadInput reads adsFile, or the newest "<dir>/<prefix>_*.json" when adsFile
// is empty, and keeps only the listed ids when ids is not empty.
func (e *Engine) LoadInput(adsFile, dir, prefix string, ids []string) ([]creative.Record, string, error) {
	path := adsFile
	if path == "" {
		latest, err := files.Latest(dir, prefix)
		if err != nil {
			return nil, "", err
		}
		path = latest
	}
	recs, err := files.LoadRecords(path)
	if err != nil {
		return nil, "", err
	}
	return filterIDs(recs, ids), path, nil
}

func filterIDs(recs []creative.Record, ids []string) []creative.Record {
	if len(ids) == 0 {
		return recs
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[strings.TrimSpace(id)] = struct{}{}
	}
	out := recs[:0:0]
	for _, r := range recs {
		if _, ok := want[r.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}

func (e *Engine) writeResults(dir, prefix string, recs []creative.Record) (string, error) {
	path := files.ResultsPath(dir, prefix, e.deps.Clock.Now())
	if err := files.WriteJSON(path, recs); err != nil {
		return "", fmt.Errorf("write %s: %w", prefix, err)
	}
	e.logger.Info("results saved", zap.String("file", path), zap.Int("ads", len(recs)))
	return path, nil
}

// archive copies a results file into the Archives folder of the media store.
func (e *Engine) archive(ctx context.Context, path string) {
	if e.deps.Media == nil {
		return
	}
	// #nosec G304 -- written by writeResults.
	f, err := os.Open(path)
	if err != nil {
		e.logger.Warn("archive open failed", zap.String("file", path), zap.Error(err))
		return
	}
	defer f.Close() //nolint:errcheck // read-only
	object := ArchivesFolder + "/" + filepath.Base(path)
	if _, err := e.deps.Media.PutObject(ctx, object, "application/json", f); err != nil {
		e.logger.Warn("archive upload failed", zap.String("object", object), zap.Error(err))
	}
}

// brand fills the empty fields of b from the configured default brand.
func (e *Engine) brand(b creative.Brand) creative.Brand {
	if strings.TrimSpace(b.Name) == "" {
		b.Name = e.cfg.Brand.Name
	}
	if strings.TrimSpace(b.ProductBenefits) == "" {
		b.ProductBenefits = e.cfg.Brand.ProductBenefits
	}
	return b
}

func errorCount(err error) int {
	if err == nil {
		return 0
	}
	if _, ok := err.(*creative.StageError); ok {
		return 1
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}

