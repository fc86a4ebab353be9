// Package fakes provides deterministic stage components for engine and
// server tests.
package fakes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

// Clock is a fixed clock.
type Clock struct{ T time.Time }

// Now returns the fixed time.
func (c Clock) Now() time.Time { return c.T }

// TickingClock starts at Start and moves one second forward on every call.
type TickingClock struct {
	Start time.Time
	n     atomic.Int64
}

// Now returns the next tick.
func (c *TickingClock) Now() time.Time {
	return c.Start.Add(time.Duration(c.n.Add(1)-1) * time.Second)
}

// IDs hands out run-1, run-2, ...
type IDs struct{ n atomic.Int64 }

// NewID returns the next sequential id.
func (g *IDs) NewID() (string, error) {
	return fmt.Sprintf("run-%d", g.n.Add(1)), nil
}

// Scraper returns a copy of Records and Err, and remembers its last arguments.
type Scraper struct {
	Records []creative.Record
	Err     error

	mu          sync.Mutex
	Competitors []creative.Competitor
	MinDays     int
}

// Scrape implements creative.Scraper.
func (s *Scraper) Scrape(_ context.Context, competitors []creative.Competitor, minDays int) ([]creative.Record, error) {
	s.mu.Lock()
	s.Competitors = competitors
	s.MinDays = minDays
	s.mu.Unlock()
	return append([]creative.Record(nil), s.Records...), s.Err
}

// Downloader writes Content (or a per-id payload) to Dir for every record.
type Downloader struct {
	Dir     string
	Content []byte
}

// Download implements creative.Downloader.
func (d *Downloader) Download(_ context.Context, rec *creative.Record) error {
	body := d.Content
	if body == nil {
		body = []byte("media-" + rec.ID)
	}
	path := filepath.Join(d.Dir, rec.ID+".mp4")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return err
	}
	rec.LocalPath = path
	rec.MediaType = creative.MediaVideo
	rec.Status = rec.Status.Advance(creative.StatusDownloaded)
	return nil
}

// Transcriber fails for the ids in Fail and succeeds for the rest.
type Transcriber struct {
	Fail map[string]bool
}

// Transcribe implements creative.Transcriber.
func (t *Transcriber) Transcribe(_ context.Context, rec *creative.Record) error {
	if t.Fail[rec.ID] {
		return creative.NewStageError(creative.ErrTranscription, creative.StageTranscribe, rec.ID, errors.New("status error"))
	}
	rec.Transcript = "transcript for " + rec.ID
	rec.Status = rec.Status.Advance(creative.StatusTranscribed)
	return nil
}

// Analyzer records the ids it was asked to analyze.
type Analyzer struct {
	mu    sync.Mutex
	calls []string
	kinds []creative.AnalysisType
}

// Analyze implements creative.Analyzer.
func (a *Analyzer) Analyze(_ context.Context, rec *creative.Record, kind creative.AnalysisType) error {
	a.mu.Lock()
	a.calls = append(a.calls, rec.ID)
	a.kinds = append(a.kinds, kind)
	a.mu.Unlock()
	rec.Analysis = &creative.Analysis{Type: kind, Text: "HOOK ANALYSIS: question hook"}
	rec.Insights.TopHooks = "question hook"
	rec.Status = rec.Status.Advance(creative.StatusAnalyzed)
	return nil
}

// Calls returns the analyzed ids in order.
func (a *Analyzer) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

// Kinds returns the requested analysis types in order.
func (a *Analyzer) Kinds() []creative.AnalysisType {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]creative.AnalysisType(nil), a.kinds...)
}

// Rewriter writes a script naming the brand it was given.
type Rewriter struct {
	mu     sync.Mutex
	brands []creative.Brand
}

// Rewrite implements creative.Rewriter.
func (r *Rewriter) Rewrite(_ context.Context, rec *creative.Record, brand creative.Brand) error {
	r.mu.Lock()
	r.brands = append(r.brands, brand)
	r.mu.Unlock()
	rec.Script = &creative.Script{
		Text:            "[HOOK] " + brand.Name,
		BrandName:       brand.Name,
		ProductBenefits: brand.ProductBenefits,
	}
	rec.Status = rec.Status.Advance(creative.StatusScripted)
	return nil
}

// Brands returns the brands requested so far.
func (r *Rewriter) Brands() []creative.Brand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]creative.Brand(nil), r.brands...)
}

// Records builds n SkinnyFit records ad-1..ad-n with media URLs.
func Records(n int) []creative.Record {
	out := make([]creative.Record, 0, n)
	for i := 1; i <= n; i++ {
		days := 7 + i
		out = append(out, creative.Record{
			ID:         fmt.Sprintf("ad-%d", i),
			Competitor: "SkinnyFit",
			Domain:     "skinnyfit.com",
			Platform:   "Facebook",
			DaysActive: &days,
			MediaURL:   fmt.Sprintf("https://cdn.tryatria.com/adfiles/m%d.mp4", i),
			Status:     creative.StatusScraped,
		})
	}
	return out
}
