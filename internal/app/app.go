// Package app builds the long-lived services behind every command from the
// loaded configuration and owns their shutdown.
package app

import (
	"context"
	"fmt"
	"os"

	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/JakeFAU/creative-intel/internal/analysis"
	"github.com/JakeFAU/creative-intel/internal/clock/system"
	"github.com/JakeFAU/creative-intel/internal/config"
	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/downloader"
	"github.com/JakeFAU/creative-intel/internal/hash/sha256"
	"github.com/JakeFAU/creative-intel/internal/id/uuid"
	"github.com/JakeFAU/creative-intel/internal/llm/anthropic"
	"github.com/JakeFAU/creative-intel/internal/notify"
	"github.com/JakeFAU/creative-intel/internal/pipeline"
	"github.com/JakeFAU/creative-intel/internal/policy/ratelimit"
	"github.com/JakeFAU/creative-intel/internal/publisher/pubsub"
	"github.com/JakeFAU/creative-intel/internal/retry"
	"github.com/JakeFAU/creative-intel/internal/rewrite"
	"github.com/JakeFAU/creative-intel/internal/scraper/atria"
	"github.com/JakeFAU/creative-intel/internal/storage/drive"
	"github.com/JakeFAU/creative-intel/internal/storage/gcs"
	"github.com/JakeFAU/creative-intel/internal/storage/local"
	"github.com/JakeFAU/creative-intel/internal/storage/memory"
	"github.com/JakeFAU/creative-intel/internal/storage/postgres"
	"github.com/JakeFAU/creative-intel/internal/storage/redis"
	"github.com/JakeFAU/creative-intel/internal/storage/sheets"
	"github.com/JakeFAU/creative-intel/internal/storage/sqlite"
	"github.com/JakeFAU/creative-intel/internal/transcriber"
)

// App holds the services shared by the CLI commands and the webhook server.
type App struct {
	Config config.Config
	Logger *zap.Logger
	Engine *pipeline.Engine
	Clock  creative.Clock
	IDs    creative.IDGenerator

	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

// New builds every configured component. Stages whose credentials are absent
// are left unset so the engine reports them as not configured when used.
// External stores that are configured but unreachable fail fast.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		Config: cfg,
		Logger: logger,
		Clock:  system.New(),
		IDs:    uuid.New(),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	for _, dir := range []string{
		cfg.Paths.RawAdsDir(),
		cfg.Paths.TranscriptsDir(),
		cfg.Paths.AnalysisDir(),
		cfg.Paths.ProcessedDir(),
		cfg.Paths.LogsDir,
	} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.RateLimit.RPS,
		DefaultBurst: cfg.RateLimit.Burst,
	})
	policy := retry.NewPolicy(cfg.Retry.MaxAttempts, config.Millis(cfg.Retry.BaseDelayMs), config.Millis(cfg.Retry.MaxDelayMs))

	deps := pipeline.Deps{
		Clock:  a.Clock,
		IDs:    a.IDs,
		Hasher: sha256.New(),
	}
	if deps.Scraper, err = a.scraper(); err != nil {
		return nil, err
	}
	if deps.Downloader, err = a.downloader(limiter); err != nil {
		return nil, err
	}
	if deps.Transcriber, err = a.transcriber(limiter); err != nil {
		return nil, err
	}
	if deps.Analyzer, deps.Rewriter, err = a.llmStages(limiter, policy); err != nil {
		return nil, err
	}
	if deps.Media, err = a.media(ctx); err != nil {
		return nil, err
	}
	if deps.Status, err = a.status(); err != nil {
		return nil, err
	}
	if deps.Records, deps.Summaries, err = a.recordStores(ctx); err != nil {
		return nil, err
	}
	if deps.Notifier, err = a.notifier(ctx); err != nil {
		return nil, err
	}

	kind, _ := creative.ParseAnalysisType(cfg.Pipeline.AnalysisType)
	a.Engine, err = pipeline.New(pipeline.Config{
		Dirs: pipeline.Dirs{
			RawAds:    cfg.Paths.RawAdsDir(),
			Processed: cfg.Paths.ProcessedDir(),
		},
		Competitors:   cfg.Competitors,
		MinDaysActive: cfg.Filter.MinDaysActive,
		AnalysisType:  kind,
		Brand:         cfg.Brand.Brand(),
	}, deps, logger.Named("pipeline"))
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	logger.Info("application services initialized",
		zap.Bool("scraper", deps.Scraper != nil),
		zap.Bool("transcriber", deps.Transcriber != nil),
		zap.Bool("llm", deps.Analyzer != nil),
		zap.String("media", cfg.Media.Backend),
		zap.String("status", cfg.Status.Backend),
		zap.Int("record_stores", len(deps.Records)),
	)
	return a, nil
}

func (a *App) onClose(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Close releases every service in reverse construction order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.Logger.Warn("close failed", zap.String("service", c.name), zap.Error(err))
		}
	}
	a.closers = nil
}

func (a *App) scraper() (creative.Scraper, error) {
	cfg := a.Config.Atria
	if cfg.Email == "" || cfg.Password == "" {
		a.Logger.Warn("atria credentials missing; scraping disabled")
		return nil, nil
	}
	s, err := atria.New(atria.Config{
		Email:             cfg.Email,
		Password:          cfg.Password,
		LoginURL:          cfg.LoginURL,
		DiscoveryURL:      cfg.DiscoveryURL,
		MaxScrolls:        cfg.MaxScrolls,
		LoginAttempts:     cfg.LoginAttempts,
		NavigationTimeout: config.Seconds(cfg.NavTimeoutSeconds),
		UserAgent:         cfg.UserAgent,
		Headless:          cfg.Headless,
	}, a.Clock, a.Logger.Named("atria"))
	if err != nil {
		return nil, fmt.Errorf("build scraper: %w", err)
	}
	a.onClose("atria", func() error {
		s.Close()
		return nil
	})
	return s, nil
}

func (a *App) downloader(limiter *ratelimit.Limiter) (creative.Downloader, error) {
	cfg := a.Config.Download
	d, err := downloader.New(downloader.Config{
		Dir:           a.Config.Paths.RawAdsDir(),
		VideoTimeout:  config.Seconds(cfg.VideoTimeoutSeconds),
		ImageTimeout:  config.Seconds(cfg.ImageTimeoutSeconds),
		MinVideoBytes: cfg.MinVideoBytes,
		MinImageBytes: cfg.MinImageBytes,
		MaxBodyBytes:  cfg.MaxBodyBytes,
		UserAgent:     cfg.UserAgent,
		Referer:       a.Config.Atria.BaseURL + "/",
	}, limiter, a.Logger.Named("downloader"))
	if err != nil {
		return nil, fmt.Errorf("build downloader: %w", err)
	}
	return d, nil
}

func (a *App) transcriber(limiter *ratelimit.Limiter) (creative.Transcriber, error) {
	cfg := a.Config.AssemblyAI
	if cfg.APIKey == "" {
		a.Logger.Warn("assemblyai api key missing; transcription disabled")
		return nil, nil
	}
	api, err := transcriber.NewAssemblyAI(cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("build assemblyai client: %w", err)
	}
	t, err := transcriber.New(api, transcriber.Config{
		Dir:          a.Config.Paths.TranscriptsDir(),
		PollInterval: config.Millis(cfg.PollIntervalMs),
		Timeout:      config.Seconds(cfg.TimeoutSeconds),
	}, limiter, a.Clock, a.Logger.Named("transcriber"))
	if err != nil {
		return nil, fmt.Errorf("build transcriber: %w", err)
	}
	return t, nil
}

func (a *App) llmStages(limiter *ratelimit.Limiter, policy *retry.Policy) (creative.Analyzer, creative.Rewriter, error) {
	cfg := a.Config.Anthropic
	if cfg.APIKey == "" {
		a.Logger.Warn("anthropic api key missing; analysis and rewriting disabled")
		return nil, nil, nil
	}
	client, err := anthropic.New(anthropic.Config{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: int64(cfg.MaxTokens),
		BaseURL:   cfg.BaseURL,
	}, limiter, policy, a.Logger.Named("anthropic"))
	if err != nil {
		return nil, nil, fmt.Errorf("build anthropic client: %w", err)
	}
	analyzer, err := analysis.New(client, a.Config.Paths.AnalysisDir(), a.Clock, a.Logger.Named("analysis"))
	if err != nil {
		return nil, nil, fmt.Errorf("build analyzer: %w", err)
	}
	rewriter, err := rewrite.New(client, a.Config.Paths.ProcessedDir(), a.Config.Brand.Brand(), a.Clock, a.Logger.Named("rewrite"))
	if err != nil {
		return nil, nil, fmt.Errorf("build rewriter: %w", err)
	}
	return analyzer, rewriter, nil
}

// googleOptions points Google clients at the service account file when it
// exists and falls back to application default credentials otherwise.
func (a *App) googleOptions() []option.ClientOption {
	path := a.Config.Google.ServiceAccountFile
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		a.Logger.Debug("service account file not found; using default credentials", zap.String("path", path))
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(path)}
}

func (a *App) media(ctx context.Context) (creative.MediaStore, error) {
	cfg := a.Config.Media
	switch cfg.Backend {
	case "local":
		store, err := local.New(local.Config{BaseDir: cfg.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("build local media store: %w", err)
		}
		return store, nil
	case "gcs":
		client, err := gcstorage.NewClient(ctx, a.googleOptions()...)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		a.onClose("gcs", client.Close)
		store, err := gcs.New(client, gcs.Config{Bucket: cfg.GCSBucket, Prefix: cfg.Prefix})
		if err != nil {
			return nil, fmt.Errorf("build gcs media store: %w", err)
		}
		return store, nil
	case "drive":
		store, err := drive.Open(ctx, a.Config.Google.DriveFolderID, a.Logger.Named("drive"), a.googleOptions()...)
		if err != nil {
			return nil, fmt.Errorf("build drive media store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
	}
}

func (a *App) status() (creative.StatusStore, error) {
	cfg := a.Config.Status
	if cfg.Backend != "redis" {
		return memory.NewStatusStore(), nil
	}
	client, err := redis.Dial(redis.Config{Addr: cfg.RedisAddr})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	store, err := redis.NewStatusStore(client, cfg.RedisKey)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("build redis status store: %w", err)
	}
	a.onClose("redis", store.Close)
	return store, nil
}

// recordStore is satisfied by every persistent record backend.
type recordStore interface {
	creative.RecordStore
	creative.SummaryStore
}

func (a *App) recordStores(ctx context.Context) ([]creative.RecordStore, []creative.SummaryStore, error) {
	var stores []recordStore

	if id := a.Config.Google.SheetsID; id != "" {
		s, err := sheets.Open(ctx, id, a.Logger.Named("sheets"), a.googleOptions()...)
		if err != nil {
			return nil, nil, fmt.Errorf("build sheets store: %w", err)
		}
		stores = append(stores, s)
	}
	if dsn := a.Config.DB.DSN; dsn != "" {
		s, err := postgres.NewRecordStore(ctx, postgres.RecordStoreConfig{
			DSN:      dsn,
			Table:    a.Config.DB.Table,
			MaxConns: int32(a.Config.DB.MaxOpenConns), // #nosec G115 -- small config value
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build postgres store: %w", err)
		}
		a.onClose("postgres", func() error {
			s.Close()
			return nil
		})
		stores = append(stores, s)
	}
	if path := a.Config.DB.SQLitePath; path != "" {
		s, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("build sqlite store: %w", err)
		}
		a.onClose("sqlite", s.Close)
		stores = append(stores, s)
	}
	if len(stores) == 0 {
		a.Logger.Warn("no record store configured; results are only written to local files")
	}

	records := make([]creative.RecordStore, 0, len(stores))
	summaries := make([]creative.SummaryStore, 0, len(stores))
	for _, s := range stores {
		records = append(records, s)
		summaries = append(summaries, s)
	}
	return records, summaries, nil
}

func (a *App) notifier(ctx context.Context) (creative.Notifier, error) {
	hooks := a.Config.Webhooks
	sinks := notify.Multi{notify.NewMake(notify.MakeConfig{
		NewAdURL:            hooks.NewAdURL,
		AnalysisCompleteURL: hooks.AnalysisCompleteURL,
		ScriptReadyURL:      hooks.ScriptReadyURL,
		Timeout:             config.Seconds(hooks.TimeoutSeconds),
	}, a.Logger.Named("make"))}

	if topic := a.Config.PubSub.Topic; topic != "" {
		pub, err := pubsub.Dial(ctx, a.Config.PubSub.ProjectID, topic, a.googleOptions()...)
		if err != nil {
			return nil, fmt.Errorf("build pubsub publisher: %w", err)
		}
		a.onClose("pubsub", pub.Close)
		sinks = append(sinks, notify.NewPublished(pub))
	}
	return sinks, nil
}
