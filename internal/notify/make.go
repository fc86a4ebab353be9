package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/metrics"
)

// MakeConfig holds the Make.com scenario webhook URLs.
type MakeConfig struct {
	NewAdURL            string
	AnalysisCompleteURL string
	ScriptReadyURL      string
	Timeout             time.Duration
}

// Make posts events to Make.com custom webhooks.
type Make struct {
	urls   map[creative.EventType]string
	client *http.Client
	logger *zap.Logger
}

// NewMake builds a Make notifier. Batch completion goes to the analysis
// complete URL.
func NewMake(cfg MakeConfig, logger *zap.Logger) *Make {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Make{
		urls: map[creative.EventType]string{
			creative.EventNewAd:            cfg.NewAdURL,
			creative.EventAnalysisComplete: cfg.AnalysisCompleteURL,
			creative.EventScriptReady:      cfg.ScriptReadyURL,
			creative.EventBatchComplete:    cfg.AnalysisCompleteURL,
		},
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Configured reports whether url looks like a real webhook. Empty values,
// template placeholders and non-http values are treated as not configured.
func Configured(url string) bool {
	if url == "" || strings.Contains(url, "your_") {
		return false
	}
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// Notify posts the event payload. Unconfigured URLs are skipped silently.
func (m *Make) Notify(ctx context.Context, ev creative.Event) error {
	url := m.urls[ev.Type]
	if !Configured(url) {
		metrics.ObserveWebhookDelivery(string(ev.Type), "skipped")
		return nil
	}
	body, err := json.Marshal(Payload(ev))
	if err != nil {
		return m.fail(ev, fmt.Errorf("marshal payload: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return m.fail(ev, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return m.fail(ev, err)
	}
	defer resp.Body.Close() //nolint:errcheck // drained below
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return m.fail(ev, fmt.Errorf("http %d", resp.StatusCode))
	}
	metrics.ObserveWebhookDelivery(string(ev.Type), "success")
	m.logger.Info("webhook delivered", zap.String("event", string(ev.Type)), zap.String("url", redact(url)))
	return nil
}

func (m *Make) fail(ev creative.Event, err error) error {
	metrics.ObserveWebhookDelivery(string(ev.Type), "failed")
	adID := ""
	if ev.Record != nil {
		adID = ev.Record.ID
	}
	return creative.NewStageError(creative.ErrWebhookDelivery, creative.StageNotify, adID,
		fmt.Errorf("%s: %w", ev.Type, err))
}

// redact keeps the host and the first path characters so hook tokens stay out of logs.
func redact(url string) string {
	if len(url) <= 40 {
		return url
	}
	return url[:40] + "..."
}
