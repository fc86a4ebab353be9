// Package atria scrapes competitor ads from the Atria ad-intelligence platform
// with a headless Chrome session.
package atria

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/metrics"
	"github.com/JakeFAU/creative-intel/internal/retry"
)

const (
	emailSelector    = `input[name="email"], input[type="email"], input[placeholder*="email" i]`
	passwordSelector = `input[name="password"], input[type="password"]`
	submitSelector   = `button[type="submit"]`
)

// Config controls the browser session.
type Config struct {
	Email             string
	Password          string
	LoginURL          string
	DiscoveryURL      string
	MaxScrolls        int
	LoginAttempts     int
	NavigationTimeout time.Duration
	UserAgent         string
	Headless          bool
	// Settle is the pause after navigation and scrolling while the page renders.
	Settle time.Duration
}

// Scraper implements creative.Scraper using chromedp.
type Scraper struct {
	cfg         Config
	logger      *zap.Logger
	clock       creative.Clock
	login       *retry.Policy
	allocator   context.Context
	allocCancel context.CancelFunc
}

// New creates a scraper backed by a Chrome exec allocator. Chrome is only
// launched when Scrape runs.
func New(cfg Config, clock creative.Clock, logger *zap.Logger) (*Scraper, error) {
	if cfg.Email == "" || cfg.Password == "" {
		return nil, creative.NewStageError(creative.ErrAuthentication, creative.StageScrape, "",
			errors.New("atria email and password are required"))
	}
	if cfg.LoginURL == "" || cfg.DiscoveryURL == "" {
		return nil, fmt.Errorf("atria login and discovery urls are required")
	}
	if cfg.MaxScrolls <= 0 {
		cfg.MaxScrolls = 10
	}
	if cfg.LoginAttempts <= 0 {
		cfg.LoginAttempts = 3
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 120 * time.Second
	}
	if cfg.Settle <= 0 {
		cfg.Settle = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	headless := any(false)
	if cfg.Headless {
		headless = "new"
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(1920, 1080),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Scraper{
		cfg:         cfg,
		logger:      logger,
		clock:       clock,
		login:       retry.NewPolicy(cfg.LoginAttempts, 3*time.Second, 10*time.Second),
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context and shuts Chrome down.
func (s *Scraper) Close() {
	s.allocCancel()
}

// Scrape logs in once and collects filtered records for every competitor.
// A failing competitor is logged and reported in the returned error while the
// records of the others are still returned.
func (s *Scraper) Scrape(ctx context.Context, competitors []creative.Competitor, minDaysActive int) ([]creative.Record, error) {
	start := time.Now()
	defer func() { metrics.ObserveStageDuration(creative.StageScrape, time.Since(start)) }()

	browserCtx, browserCancel := chromedp.NewContext(s.allocator)
	defer browserCancel()
	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()

	capture := newVideoCapture()
	chromedp.ListenTarget(browserCtx, capture.captureEvent)

	if err := chromedp.Run(browserCtx, s.networkSetupAction()); err != nil {
		return nil, creative.NewStageError(creative.ErrScrape, creative.StageScrape, "", fmt.Errorf("start browser: %w", err))
	}

	if err := s.login.Do(ctx, func(context.Context) error { return s.Login(browserCtx) }); err != nil {
		return nil, creative.NewStageError(creative.ErrAuthentication, creative.StageScrape, "", err)
	}
	s.logger.Info("atria login succeeded")

	var (
		all  []creative.Record
		errs []error
	)
	for _, comp := range competitors {
		if err := ctx.Err(); err != nil {
			return creative.Dedupe(all), fmt.Errorf("scrape canceled: %w", err)
		}
		records, err := s.searchCompetitor(browserCtx, capture, comp, minDaysActive)
		if err != nil {
			s.logger.Warn("competitor scrape failed", zap.String("competitor", comp.Name), zap.Error(err))
			metrics.ObserveStageItem(creative.StageScrape, "failed")
			errs = append(errs, creative.NewStageError(creative.ErrScrape, creative.StageScrape, "", fmt.Errorf("%s: %w", comp.Name, err)))
			continue
		}
		for range records {
			metrics.ObserveStageItem(creative.StageScrape, "success")
		}
		s.logger.Info("competitor scraped", zap.String("competitor", comp.Name), zap.Int("ads", len(records)))
		all = append(all, records...)
	}
	return creative.Dedupe(all), errors.Join(errs...)
}

// Login fills the login form once and verifies the browser left the login page.
func (s *Scraper) Login(ctx context.Context) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	var location string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(s.cfg.LoginURL),
		chromedp.WaitVisible(emailSelector, chromedp.ByQuery),
		chromedp.Clear(emailSelector, chromedp.ByQuery),
		chromedp.SendKeys(emailSelector, s.cfg.Email, chromedp.ByQuery),
		chromedp.WaitVisible(passwordSelector, chromedp.ByQuery),
		chromedp.Clear(passwordSelector, chromedp.ByQuery),
		chromedp.SendKeys(passwordSelector, s.cfg.Password, chromedp.ByQuery),
		chromedp.Click(submitSelector, chromedp.ByQuery),
		chromedp.Sleep(2*s.cfg.Settle),
		chromedp.Location(&location),
	)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			// A page timeout is worth another attempt; only the caller's deadline is final.
			return fmt.Errorf("login flow timed out after %s", s.cfg.NavigationTimeout)
		}
		return fmt.Errorf("login flow: %w", err)
	}
	if strings.Contains(strings.ToLower(location), "login") {
		return fmt.Errorf("still on login page after submit: %s", location)
	}
	return nil
}

func (s *Scraper) searchCompetitor(ctx context.Context, capture *videoCapture, comp creative.Competitor, minDays int) ([]creative.Record, error) {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	capture.reset()
	target := SearchURL(s.cfg.DiscoveryURL, comp)
	s.logger.Info("searching competitor ads", zap.String("competitor", comp.Name), zap.String("url", target))

	if err := chromedp.Run(navCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.cfg.Settle),
	); err != nil {
		return nil, fmt.Errorf("open discovery page: %w", err)
	}

	var collected []creative.Record
	for scroll := 0; scroll < s.cfg.MaxScrolls; scroll++ {
		var (
			html     string
			atBottom bool
		)
		if err := chromedp.Run(navCtx,
			chromedp.Evaluate(triggerVideoJS, nil),
			chromedp.Sleep(s.cfg.Settle),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		); err != nil {
			return nil, fmt.Errorf("capture page %d: %w", scroll+1, err)
		}

		records, err := ParseCards(html, comp, s.clock.Now())
		if err != nil {
			return nil, err
		}
		if scroll == 0 && len(records) == 0 {
			return nil, errors.New("no ad cards found on discovery page")
		}
		collected = append(collected, records...)

		if err := chromedp.Run(navCtx,
			chromedp.Evaluate(`window.scrollBy(0, window.innerHeight)`, nil),
			chromedp.Sleep(s.cfg.Settle),
			chromedp.Evaluate(atBottomJS, &atBottom),
		); err != nil {
			return nil, fmt.Errorf("scroll page %d: %w", scroll+1, err)
		}
		if atBottom {
			s.logger.Debug("reached end of results", zap.Int("scrolls", scroll+1))
			break
		}
	}

	collected = creative.Dedupe(collected)
	ResolveVideoURLs(collected, capture.snapshot())
	return Apply(collected, comp, minDays), nil
}

// SearchURL builds the discovery URL for a competitor. The query keeps its
// literal '+' separator, which the platform reads as a space.
func SearchURL(discoveryURL string, comp creative.Competitor) string {
	return fmt.Sprintf("%s?format=video&status=active&q=%s&searchType=ad_copy&sortBy=most_relevant",
		strings.TrimRight(discoveryURL, "?"), comp.SearchQuery())
}

func (s *Scraper) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// triggerVideoJS nudges lazy players so the CDN video requests show up on the
// network.
const triggerVideoJS = `(() => {
  document.querySelectorAll('video').forEach(v => {
    v.muted = true;
    try { v.play(); } catch (e) {}
  });
  document.querySelectorAll('[class*="play" i], button[aria-label*="play" i]').forEach(el => {
    el.dispatchEvent(new MouseEvent('mouseover', {bubbles: true}));
  });
  return true;
})()`

const atBottomJS = `window.innerHeight + window.scrollY >= document.body.scrollHeight - 100`
