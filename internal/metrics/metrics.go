// Package metrics exposes Prometheus collectors for the pipeline service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	stageItemsTotal            *prometheus.CounterVec
	stageDurationSeconds       *prometheus.HistogramVec
	runsTotal                  *prometheus.CounterVec
	mediaBytesTotal            *prometheus.CounterVec
	webhookDeliveriesTotal     *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	activeWorkers              prometheus.Gauge
	rateLimitDelaysSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		stageItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creative_stage_items_total",
				Help: "Records handled per pipeline stage, labeled by outcome.",
			},
			[]string{"stage", "outcome"},
		)

		stageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "creative_stage_duration_seconds",
				Help:    "Wall time of one pipeline stage invocation.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"stage"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creative_runs_total",
				Help: "Pipeline runs, labeled by action and final status.",
			},
			[]string{"action", "status"},
		)

		mediaBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creative_media_bytes_total",
				Help: "Bytes of ad media downloaded, labeled by media type.",
			},
			[]string{"media_type"},
		)

		webhookDeliveriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creative_webhook_deliveries_total",
				Help: "Outbound webhook deliveries, labeled by event and outcome.",
			},
			[]string{"event", "outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "creative_active_workers",
				Help: "Number of workers currently processing a run.",
			},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "creative_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"service"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveStageItem counts one record leaving a stage with the given outcome.
func ObserveStageItem(stage, outcome string) {
	Init()
	stageItemsTotal.WithLabelValues(stage, outcome).Inc()
}

// ObserveStageDuration records how long a stage took.
func ObserveStageDuration(stage string, duration time.Duration) {
	Init()
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveRun counts a finished run.
func ObserveRun(action, status string) {
	Init()
	runsTotal.WithLabelValues(action, status).Inc()
}

// ObserveMediaBytes adds downloaded bytes.
func ObserveMediaBytes(mediaType string, n int) {
	Init()
	if n > 0 {
		mediaBytesTotal.WithLabelValues(mediaType).Add(float64(n))
	}
}

// ObserveWebhookDelivery counts an outbound webhook attempt.
func ObserveWebhookDelivery(event, outcome string) {
	Init()
	webhookDeliveriesTotal.WithLabelValues(event, outcome).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(service string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(service).Observe(duration.Seconds())
}
