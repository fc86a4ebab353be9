// Package downloader fetches ad media referenced by scraped records.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/metrics"
)

// DefaultCDNBase is where Atria serves ad files.
const DefaultCDNBase = "https://cdn.tryatria.com"

// Waiter spaces outbound requests. *ratelimit.Limiter satisfies it.
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

// Config controls download behavior.
type Config struct {
	Dir           string
	VideoTimeout  time.Duration
	ImageTimeout  time.Duration
	MinVideoBytes int
	MinImageBytes int
	MaxBodyBytes  int
	UserAgent     string
	Referer       string
	CDNBase       string
}

// Downloader implements creative.Downloader using Colly collectors.
type Downloader struct {
	cfg           Config
	logger        *zap.Logger
	limiter       Waiter
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

type fetchResult struct {
	url         string
	status      int
	contentType string
	body        []byte
}

// New builds a Downloader writing into cfg.Dir.
func New(cfg Config, limiter Waiter, logger *zap.Logger) (*Downloader, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}
	if cfg.VideoTimeout <= 0 {
		cfg.VideoTimeout = 180 * time.Second
	}
	if cfg.ImageTimeout <= 0 {
		cfg.ImageTimeout = 60 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 512 << 20
	}
	if cfg.Referer == "" {
		cfg.Referer = "https://app.tryatria.com/"
	}
	if cfg.CDNBase == "" {
		cfg.CDNBase = DefaultCDNBase
	}
	cfg.CDNBase = strings.TrimRight(cfg.CDNBase, "/")
	if logger == nil {
		logger = zap.NewNop()
	}

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.MaxBodySize(cfg.MaxBodyBytes),
	)
	c.WithTransport(newHTTPTransport())

	return &Downloader{
		cfg:           cfg,
		logger:        logger,
		limiter:       limiter,
		baseCollector: c,
	}, nil
}

// Download tries every candidate URL for the record until one yields a file
// large enough to be real media. Records without a media URL are left alone.
func (d *Downloader) Download(ctx context.Context, rec *creative.Record) error {
	if rec.MediaURL == "" {
		d.logger.Debug("no media url, skipping download", zap.String("ad_id", rec.ID))
		metrics.ObserveStageItem(creative.StageDownload, "skipped")
		return nil
	}

	candidates := Candidates(*rec, d.cfg.CDNBase)
	var errs []error
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("download canceled: %w", err)
		}
		urlIsVideo := isVideoURL(candidate)
		timeout, minSize := d.cfg.ImageTimeout, d.cfg.MinImageBytes
		if urlIsVideo {
			timeout, minSize = d.cfg.VideoTimeout, d.cfg.MinVideoBytes
		}

		res, err := d.fetch(ctx, candidate, timeout)
		if err != nil {
			d.logger.Debug("candidate failed", zap.String("ad_id", rec.ID), zap.String("url", candidate), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", candidate, err))
			continue
		}
		if len(res.body) < minSize {
			errs = append(errs, fmt.Errorf("%s: file too small (%d bytes)", candidate, len(res.body)))
			continue
		}

		ext, actualVideo := extension(candidate, res.contentType)
		actualVideo = actualVideo || urlIsVideo || strings.Contains(res.contentType, "video")
		path := filepath.Join(d.cfg.Dir, FileName(rec.Competitor, rec.ID, ext, actualVideo))
		if err := os.WriteFile(path, res.body, 0o644); err != nil {
			return creative.NewStageError(creative.ErrDownload, creative.StageDownload, rec.ID, fmt.Errorf("write %s: %w", path, err))
		}

		rec.LocalPath = path
		rec.DownloadedFrom = candidate
		if actualVideo {
			rec.MediaType = creative.MediaVideo
		}
		rec.Status = rec.Status.Advance(creative.StatusDownloaded)

		kind := string(creative.MediaImage)
		if actualVideo {
			kind = string(creative.MediaVideo)
		}
		metrics.ObserveMediaBytes(kind, len(res.body))
		metrics.ObserveStageItem(creative.StageDownload, "success")
		d.logger.Info("media downloaded",
			zap.String("ad_id", rec.ID),
			zap.String("file", filepath.Base(path)),
			zap.Int("kb", len(res.body)/1024),
		)
		return nil
	}

	metrics.ObserveStageItem(creative.StageDownload, "failed")
	return creative.NewStageError(creative.ErrDownload, creative.StageDownload, rec.ID,
		fmt.Errorf("all %d candidate urls failed: %w", len(candidates), errors.Join(errs...)))
}

func (d *Downloader) fetch(ctx context.Context, url string, timeout time.Duration) (fetchResult, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx, url); err != nil {
			return fetchResult{}, err
		}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		result   fetchResult
		fetchErr error
	)
	collector := d.baseCollector.Clone()
	if d.cfg.UserAgent != "" {
		collector.UserAgent = d.cfg.UserAgent
	}
	collector.SetRequestTimeout(timeout)
	d.configureCollectorHooks(collector, &result, &fetchErr)

	if err := runCollector(ctx, collector, url, &fetchErr); err != nil {
		return fetchResult{}, err
	}
	if result.status < 200 || result.status > 299 {
		return fetchResult{}, fmt.Errorf("unexpected status %d", result.status)
	}
	return result, nil
}

func (d *Downloader) configureCollectorHooks(hooks collectorHooks, result *fetchResult, fetchErr *error) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "video/*, image/*")
		r.Headers.Set("Referer", d.cfg.Referer)
	})

	hooks.OnResponse(func(r *colly.Response) {
		*result = fetchResult{
			url:         r.Request.URL.String(),
			status:      r.StatusCode,
			contentType: strings.ToLower(r.Headers.Get("Content-Type")),
			body:        append([]byte(nil), r.Body...),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
