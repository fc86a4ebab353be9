// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server      ServerConfig          `mapstructure:"server"`
	Logging     LoggingConfig         `mapstructure:"logging"`
	Paths       PathsConfig           `mapstructure:"paths"`
	Atria       AtriaConfig           `mapstructure:"atria"`
	Filter      FilterConfig          `mapstructure:"filter"`
	Competitors []creative.Competitor `mapstructure:"competitors"`
	Download    DownloadConfig        `mapstructure:"download"`
	AssemblyAI  AssemblyAIConfig      `mapstructure:"assemblyai"`
	Anthropic   AnthropicConfig       `mapstructure:"anthropic"`
	Brand       BrandConfig           `mapstructure:"brand"`
	Pipeline    PipelineConfig        `mapstructure:"pipeline"`
	Google      GoogleConfig          `mapstructure:"google"`
	Media       MediaConfig           `mapstructure:"media"`
	DB          DBConfig              `mapstructure:"db"`
	PubSub      PubSubConfig          `mapstructure:"pubsub"`
	Status      StatusConfig          `mapstructure:"status"`
	Webhooks    WebhooksConfig        `mapstructure:"webhooks"`
	RateLimit   RateLimitConfig       `mapstructure:"ratelimit"`
	Retry       RetryConfig           `mapstructure:"retry"`
	Schedule    ScheduleConfig        `mapstructure:"schedule"`
}

// ServerConfig controls the webhook server.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	Workers        int `mapstructure:"workers"`
	QueueDepth     int `mapstructure:"queue_depth"`
	RequestTimeout int `mapstructure:"request_timeout_seconds"`

	// RunTimeoutMinutes bounds one queued pipeline run.
	RunTimeoutMinutes int `mapstructure:"run_timeout_minutes"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// PathsConfig locates the local working directories.
type PathsConfig struct {
	DataDir string `mapstructure:"data_dir"`
	LogsDir string `mapstructure:"logs_dir"`
}

// RawAdsDir holds downloaded media and scrape results.
func (p PathsConfig) RawAdsDir() string { return filepath.Join(p.DataDir, "raw_ads") }

// TranscriptsDir holds transcript JSON files.
func (p PathsConfig) TranscriptsDir() string { return filepath.Join(p.DataDir, "transcripts") }

// AnalysisDir holds analysis JSON files.
func (p PathsConfig) AnalysisDir() string { return filepath.Join(p.DataDir, "analysis_results") }

// ProcessedDir holds scripts, stage results and pipeline results.
func (p PathsConfig) ProcessedDir() string { return filepath.Join(p.DataDir, "processed") }

// AtriaConfig configures the ad-spy platform session.
type AtriaConfig struct {
	Email             string `mapstructure:"email"`
	Password          string `mapstructure:"password"`
	BaseURL           string `mapstructure:"base_url"`
	LoginURL          string `mapstructure:"login_url"`
	DiscoveryURL      string `mapstructure:"discovery_url"`
	MaxScrolls        int    `mapstructure:"max_scrolls"`
	LoginAttempts     int    `mapstructure:"login_attempts"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
	UserAgent         string `mapstructure:"user_agent"`
	Headless          bool   `mapstructure:"headless"`
}

// FilterConfig holds scrape filters.
type FilterConfig struct {
	MinDaysActive int `mapstructure:"min_days_active"`
}

// DownloadConfig tunes the media downloader.
type DownloadConfig struct {
	VideoTimeoutSeconds int    `mapstructure:"video_timeout_seconds"`
	ImageTimeoutSeconds int    `mapstructure:"image_timeout_seconds"`
	MinVideoBytes       int    `mapstructure:"min_video_bytes"`
	MinImageBytes       int    `mapstructure:"min_image_bytes"`
	MaxBodyBytes        int    `mapstructure:"max_body_bytes"`
	UserAgent           string `mapstructure:"user_agent"`
}

// AssemblyAIConfig configures transcription.
type AssemblyAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	PollIntervalMs int    `mapstructure:"poll_interval_ms"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// AnthropicConfig configures the LLM client.
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
	BaseURL   string `mapstructure:"base_url"`
}

// BrandConfig is the default target brand for rewrites.
type BrandConfig struct {
	Name            string `mapstructure:"name"`
	ProductBenefits string `mapstructure:"product_benefits"`
}

// Brand converts the config into the domain type.
func (b BrandConfig) Brand() creative.Brand {
	return creative.Brand{Name: b.Name, ProductBenefits: b.ProductBenefits}
}

// PipelineConfig holds stage defaults.
type PipelineConfig struct {
	AnalysisType string `mapstructure:"analysis_type"`
}

// GoogleConfig configures Sheets and Drive access.
type GoogleConfig struct {
	ServiceAccountFile string `mapstructure:"service_account_file"`
	SheetsID           string `mapstructure:"sheets_id"`
	DriveFolderID      string `mapstructure:"drive_folder_id"`
}

// MediaConfig selects where media and artifacts are uploaded.
type MediaConfig struct {
	Backend   string `mapstructure:"backend"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
	LocalDir  string `mapstructure:"local_dir"`
}

// DBConfig controls the optional relational record stores.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	Table        string `mapstructure:"table"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	SQLitePath   string `mapstructure:"sqlite_path"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// StatusConfig selects the run status backend.
type StatusConfig struct {
	Backend   string `mapstructure:"backend"`
	RedisAddr string `mapstructure:"redis_addr"`
	RedisKey  string `mapstructure:"redis_key"`
}

// WebhooksConfig lists the outbound workflow-automation URLs.
type WebhooksConfig struct {
	NewAdURL            string `mapstructure:"new_ad_url"`
	AnalysisCompleteURL string `mapstructure:"analysis_complete_url"`
	ScriptReadyURL      string `mapstructure:"script_ready_url"`
	TimeoutSeconds      int    `mapstructure:"timeout_seconds"`
}

// RateLimitConfig spaces calls to external APIs.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// RetryConfig is the bounded retry policy for external calls.
type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	BaseDelayMs int `mapstructure:"base_delay_ms"`
	MaxDelayMs  int `mapstructure:"max_delay_ms"`
}

// ScheduleConfig holds optional cron expressions for server mode.
type ScheduleConfig struct {
	FullPipeline string `mapstructure:"full_pipeline"`
}

// legacyEnv maps config keys to the environment names used by existing deployments.
var legacyEnv = map[string]string{
	"atria.email":                    "ATRIA_EMAIL",
	"atria.password":                 "ATRIA_PASSWORD",
	"assemblyai.api_key":             "ASSEMBLYAI_API_KEY",
	"anthropic.api_key":              "ANTHROPIC_API_KEY",
	"google.sheets_id":               "GOOGLE_SHEETS_ID",
	"google.service_account_file":    "GOOGLE_SERVICE_ACCOUNT_FILE",
	"google.drive_folder_id":         "GOOGLE_DRIVE_FOLDER_ID",
	"webhooks.new_ad_url":            "MAKE_WEBHOOK_NEW_AD",
	"webhooks.analysis_complete_url": "MAKE_WEBHOOK_ANALYSIS_COMPLETE",
	"webhooks.script_ready_url":      "MAKE_WEBHOOK_SCRIPT_READY",
	"server.port":                    "WEBHOOK_SERVER_PORT",
	"filter.min_days_active":         "MIN_AD_DAYS_ACTIVE",
}

// LoadDotEnv loads KEY=VALUE files into the process environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CREATIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := "CREATIVE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.workers", 1)
	v.SetDefault("server.queue_depth", 16)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("server.run_timeout_minutes", 120)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("paths.data_dir", "data")
	v.SetDefault("paths.logs_dir", "logs")
	v.SetDefault("atria.base_url", "https://app.tryatria.com")
	v.SetDefault("atria.login_url", "https://app.tryatria.com/login")
	v.SetDefault("atria.discovery_url", "https://app.tryatria.com/workspace/discovery")
	v.SetDefault("atria.max_scrolls", 10)
	v.SetDefault("atria.login_attempts", 3)
	v.SetDefault("atria.nav_timeout_seconds", 120)
	v.SetDefault("atria.user_agent", defaultUserAgent)
	v.SetDefault("atria.headless", true)
	v.SetDefault("filter.min_days_active", 7)
	v.SetDefault("competitors", []map[string]any{
		{"name": "ColonBroom", "domain": "colonbroom.com", "filter": "GLP1"},
		{"name": "SkinnyFit", "domain": "skinnyfit.com"},
		{"name": "SereneHerbs", "domain": "sereneherbs.com", "filter": "GLP1"},
	})
	v.SetDefault("download.video_timeout_seconds", 180)
	v.SetDefault("download.image_timeout_seconds", 60)
	v.SetDefault("download.min_video_bytes", 50000)
	v.SetDefault("download.min_image_bytes", 5000)
	v.SetDefault("download.max_body_bytes", 512<<20)
	v.SetDefault("download.user_agent", defaultUserAgent)
	v.SetDefault("assemblyai.poll_interval_ms", 3000)
	v.SetDefault("assemblyai.timeout_seconds", 600)
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("brand.name", "ThermoSlim")
	v.SetDefault("brand.product_benefits", "Natural weight management, metabolism boost, appetite control")
	v.SetDefault("pipeline.analysis_type", string(creative.AnalysisFull))
	v.SetDefault("google.service_account_file", "config/google_service_account.json")
	v.SetDefault("media.backend", "local")
	v.SetDefault("media.prefix", "creative-intel")
	v.SetDefault("media.local_dir", "data/uploads")
	v.SetDefault("db.table", "ad_records")
	v.SetDefault("db.max_open_conns", 4)
	v.SetDefault("status.backend", "memory")
	v.SetDefault("status.redis_key", "creative-intel:run-state")
	v.SetDefault("webhooks.timeout_seconds", 10)
	v.SetDefault("ratelimit.rps", 1.0)
	v.SetDefault("ratelimit.burst", 1)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay_ms", 250)
	v.SetDefault("retry.max_delay_ms", 5000)
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.Workers <= 0 {
		return fmt.Errorf("server.workers must be > 0")
	}
	if c.Server.QueueDepth <= 0 {
		return fmt.Errorf("server.queue_depth must be > 0")
	}
	if c.Filter.MinDaysActive < 0 {
		return fmt.Errorf("filter.min_days_active must be >= 0")
	}
	if len(c.Competitors) == 0 {
		return fmt.Errorf("at least one competitor is required")
	}
	for i, comp := range c.Competitors {
		if comp.Name == "" || comp.Domain == "" {
			return fmt.Errorf("competitors[%d] needs name and domain", i)
		}
	}
	if _, ok := creative.ParseAnalysisType(c.Pipeline.AnalysisType); !ok {
		return fmt.Errorf("pipeline.analysis_type %q is not supported", c.Pipeline.AnalysisType)
	}
	switch c.Media.Backend {
	case "local":
		if c.Media.LocalDir == "" {
			return fmt.Errorf("media.local_dir is required for the local backend")
		}
	case "gcs":
		if c.Media.GCSBucket == "" {
			return fmt.Errorf("media.gcs_bucket is required for the gcs backend")
		}
	case "drive":
		if c.Google.DriveFolderID == "" {
			return fmt.Errorf("google.drive_folder_id is required for the drive backend")
		}
	default:
		return fmt.Errorf("unknown media.backend %q", c.Media.Backend)
	}
	switch c.Status.Backend {
	case "memory":
	case "redis":
		if c.Status.RedisAddr == "" {
			return fmt.Errorf("status.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown status.backend %q", c.Status.Backend)
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0")
	}
	return nil
}

// Preflight checks the credentials an action needs before any work starts.
func (c Config) Preflight(action creative.Action) error {
	var missing []string
	needScrape := action == creative.ActionFull || action == creative.ActionScrape
	needTranscribe := action == creative.ActionFull || action == creative.ActionTranscribe
	needLLM := action == creative.ActionFull || action == creative.ActionAnalyze || action == creative.ActionRewrite
	if needScrape && (c.Atria.Email == "" || c.Atria.Password == "") {
		missing = append(missing, "ATRIA_EMAIL/ATRIA_PASSWORD")
	}
	if needTranscribe && c.AssemblyAI.APIKey == "" {
		missing = append(missing, "ASSEMBLYAI_API_KEY")
	}
	if needLLM && c.Anthropic.APIKey == "" {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing credentials for %s: %s", action, strings.Join(missing, ", "))
	}
	return nil
}

// SelectCompetitors filters the configured competitors by name or domain.
// An empty selection returns all of them.
func (c Config) SelectCompetitors(selection []string) []creative.Competitor {
	return creative.SelectCompetitors(c.Competitors, selection)
}

// Seconds converts an integer seconds knob to a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Millis converts an integer milliseconds knob to a duration.
func Millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
