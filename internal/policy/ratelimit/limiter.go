// Package ratelimit implements token bucket rate limiting per external service.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/creative-intel/internal/metrics"
)

// Limiter manages one token bucket per service key.
type Limiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	overrides    map[string]rate.Limit
	defaultRate  rate.Limit
	defaultBurst int
}

// Config holds rate limiter configuration.
type Config struct {
	DefaultRPS   float64
	DefaultBurst int
	// PerKeyRPS overrides the default rate for specific keys.
	PerKeyRPS map[string]float64
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.DefaultRPS)
	if cfg.DefaultRPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.DefaultBurst
	if burst <= 0 {
		burst = 1
	}
	overrides := make(map[string]rate.Limit, len(cfg.PerKeyRPS))
	for k, v := range cfg.PerKeyRPS {
		if v <= 0 {
			overrides[k] = rate.Inf
			continue
		}
		overrides[k] = rate.Limit(v)
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		overrides:    overrides,
		defaultRate:  r,
		defaultBurst: burst,
	}
}

// Wait blocks until a token is available for key. Keys that look like URLs
// are reduced to their hostname.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	key = normalizeKey(key)
	l.mu.Lock()
	limiter, exists := l.limiters[key]
	if !exists {
		r, ok := l.overrides[key]
		if !ok {
			r = l.defaultRate
		}
		limiter = rate.NewLimiter(r, l.defaultBurst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if d := time.Since(start); d > time.Millisecond {
		metrics.ObserveRateLimitDelay(key, d)
	}
	return nil
}

func normalizeKey(key string) string {
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return metrics.SanitizeSite(key)
	}
	if key == "" {
		return "unknown"
	}
	return key
}
