// Package cmd defines the CLI commands for the creative-intel executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/app"
	"github.com/JakeFAU/creative-intel/internal/config"
	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/logging"
)

// Engine is the pipeline surface the commands use.
type Engine interface {
	Run(ctx context.Context, req creative.Request) (creative.RunSummary, error)
	Status(ctx context.Context) (creative.RunState, error)
}

// Services bundles what a command needs once configuration is loaded.
type Services struct {
	Config config.Config
	Logger *zap.Logger
	Engine Engine
	Clock  creative.Clock
	IDs    creative.IDGenerator
	close  func()

	closeOnce sync.Once
}

// Close releases the underlying services and flushes the logger. Commands
// defer it from RunE so it also runs when the command fails; later calls are
// no-ops.
func (s *Services) Close() {
	s.closeOnce.Do(func() {
		if s.close != nil {
			s.close()
		}
		if s.Logger != nil {
			_ = s.Logger.Sync()
		}
	})
}

type servicesKeyType string

const servicesKey servicesKeyType = "services"

// skipServices marks commands that only need configuration and a logger.
const skipServices = "skip-services"

// newServices is the service factory. It is a variable so tests can swap in fakes.
var newServices = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Services, error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Services{
		Config: cfg,
		Logger: logger,
		Engine: a.Engine,
		Clock:  a.Clock,
		IDs:    a.IDs,
		close:  a.Close,
	}, nil
}

type rootOptions struct {
	configFile      string
	envFile         string
	logLevel        string
	adsFile         string
	brandName       string
	productBenefits string
	analysisType    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "creative-intel",
		Short: "Competitor ad intelligence pipeline.",
		Long: `creative-intel scrapes competitor video ads from Atria, transcribes them,
extracts marketing insights with Claude, rewrites them as brand-aligned scripts
and stores the results in Google Sheets, Drive and optional databases.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := loadServices(cmd, opts)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), servicesKey, svc))
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (YAML)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before configuration")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.adsFile, "ads-file", "", "results file to process instead of the newest one")
	flags.StringVar(&opts.brandName, "brand-name", "", "brand name for script rewriting")
	flags.StringVar(&opts.productBenefits, "product-benefits", "", "product benefits for script rewriting")
	flags.StringVar(&opts.analysisType, "analysis-type", "", "analysis type (full, hooks, angles, emotional, structured)")

	for _, action := range []creative.Action{
		creative.ActionFull,
		creative.ActionScrape,
		creative.ActionTranscribe,
		creative.ActionAnalyze,
		creative.ActionRewrite,
	} {
		cmd.AddCommand(newActionCmd(action, opts))
	}
	cmd.AddCommand(newServerCmd())
	cmd.AddCommand(newExportCmd())
	return cmd
}

func loadServices(cmd *cobra.Command, opts *rootOptions) (*Services, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.analysisType != "" {
		cfg.Pipeline.AnalysisType = opts.analysisType
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if cmd.Annotations[skipServices] == "true" {
		return &Services{Config: cfg, Logger: logger}, nil
	}
	svc, err := newServices(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize services: %w", err)
	}
	return svc, nil
}

func resolveServices(ctx context.Context) (*Services, error) {
	svc, ok := ctx.Value(servicesKey).(*Services)
	if !ok || svc == nil {
		return nil, errors.New("application services not initialized")
	}
	return svc, nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
