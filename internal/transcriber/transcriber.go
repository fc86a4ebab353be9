// Package transcriber turns downloaded ad videos into transcripts through a
// hosted speech-to-text service.
package transcriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/metrics"
	"github.com/JakeFAU/creative-intel/internal/storage/files"
)

// Job status values reported by the service.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Job is the service-neutral view of a transcription job.
type Job struct {
	ID         string
	Status     string
	Error      string
	Text       string
	Confidence float64
	WordCount  int
	Utterances []creative.Utterance
	Highlights []creative.Highlight
	Sentiment  []creative.SentimentResult
	Categories map[string]float64
}

// API submits media and reports job state.
type API interface {
	Submit(ctx context.Context, media io.Reader) (Job, error)
	Get(ctx context.Context, id string) (Job, error)
}

// Waiter spaces outbound requests.
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

// Config controls polling and output.
type Config struct {
	Dir          string
	PollInterval time.Duration
	MaxPoll      time.Duration
	Timeout      time.Duration
}

var transcribable = map[string]struct{}{
	".mp4": {}, ".webm": {}, ".mov": {}, ".avi": {}, ".mp3": {}, ".wav": {},
}

// Transcriber implements creative.Transcriber.
type Transcriber struct {
	api     API
	cfg     Config
	limiter Waiter
	clock   creative.Clock
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// New builds a Transcriber.
func New(api API, cfg Config, limiter Waiter, clock creative.Clock, logger *zap.Logger) (*Transcriber, error) {
	if api == nil {
		return nil, errors.New("transcription api is required")
	}
	if cfg.Dir == "" {
		return nil, errors.New("transcripts dir is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.MaxPoll <= 0 {
		cfg.MaxPoll = 15 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transcriber{api: api, cfg: cfg, limiter: limiter, clock: clock, logger: logger, sleep: sleepCtx}, nil
}

// Transcribe submits the record's local media file and waits for the text.
// Records without a transcribable local file are left untouched.
func (t *Transcriber) Transcribe(ctx context.Context, rec *creative.Record) error {
	if rec.LocalPath == "" {
		t.logger.Debug("no local file, skipping transcription", zap.String("ad_id", rec.ID))
		metrics.ObserveStageItem(creative.StageTranscribe, "skipped")
		return nil
	}
	if _, ok := transcribable[strings.ToLower(filepath.Ext(rec.LocalPath))]; !ok {
		t.logger.Info("skipping non-video file", zap.String("ad_id", rec.ID), zap.String("file", rec.LocalPath))
		metrics.ObserveStageItem(creative.StageTranscribe, "skipped")
		return nil
	}

	job, err := t.run(ctx, rec.LocalPath)
	if err != nil {
		metrics.ObserveStageItem(creative.StageTranscribe, "failed")
		return creative.NewStageError(creative.ErrTranscription, creative.StageTranscribe, rec.ID, err)
	}

	transcript := &creative.Transcript{
		ID:          job.ID,
		FilePath:    rec.LocalPath,
		Text:        job.Text,
		Confidence:  job.Confidence,
		WordCount:   job.WordCount,
		Utterances:  job.Utterances,
		Highlights:  job.Highlights,
		Sentiment:   job.Sentiment,
		Categories:  job.Categories,
		Transcribed: t.clock.Now(),
	}
	path := files.ArtifactPath(t.cfg.Dir, rec.ID, "transcript")
	if err := files.WriteJSON(path, transcript); err != nil {
		metrics.ObserveStageItem(creative.StageTranscribe, "failed")
		return creative.NewStageError(creative.ErrTranscription, creative.StageTranscribe, rec.ID, err)
	}

	rec.Transcript = job.Text
	rec.TranscriptData = transcript
	rec.TranscriptFile = path
	rec.Status = rec.Status.Advance(creative.StatusTranscribed)
	metrics.ObserveStageItem(creative.StageTranscribe, "success")
	t.logger.Info("transcription completed", zap.String("ad_id", rec.ID), zap.Int("chars", len(job.Text)))
	return nil
}

func (t *Transcriber) run(ctx context.Context, path string) (Job, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	// #nosec G304 -- path was produced by the downloader.
	f, err := os.Open(path)
	if err != nil {
		return Job{}, fmt.Errorf("open media: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx, "assemblyai"); err != nil {
			return Job{}, err
		}
	}
	job, err := t.api.Submit(ctx, f)
	if err != nil {
		return Job{}, fmt.Errorf("submit: %w", err)
	}
	t.logger.Debug("transcription submitted", zap.String("job_id", job.ID))

	interval := t.cfg.PollInterval
	for {
		switch job.Status {
		case StatusCompleted:
			return job, nil
		case StatusError:
			return Job{}, fmt.Errorf("transcript %s failed: %s", job.ID, job.Error)
		}
		if err := t.sleep(ctx, interval); err != nil {
			return Job{}, fmt.Errorf("transcript %s not ready: %w", job.ID, err)
		}
		interval = nextInterval(interval, t.cfg.MaxPoll)
		id := job.ID
		job, err = t.api.Get(ctx, id)
		if err != nil {
			return Job{}, fmt.Errorf("poll %s: %w", id, err)
		}
	}
}

func nextInterval(cur, limit time.Duration) time.Duration {
	next := cur + cur/2
	if next > limit {
		return limit
	}
	return next
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
