package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

var actionHelp = map[creative.Action]string{
	creative.ActionFull:       "Run scrape, download, transcribe, analyze, rewrite and store",
	creative.ActionScrape:     "Scrape competitor ads from Atria and download their media",
	creative.ActionTranscribe: "Transcribe the newest scrape results",
	creative.ActionAnalyze:    "Analyze the newest transcription results",
	creative.ActionRewrite:    "Rewrite the newest analysis results as brand-aligned scripts",
}

func newActionCmd(action creative.Action, opts *rootOptions) *cobra.Command {
	var (
		competitors []string
		adIDs       []string
		minDays     int
	)
	cmd := &cobra.Command{
		Use:   string(action),
		Short: actionHelp[action],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := resolveServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()
			if err := svc.Config.Preflight(action); err != nil {
				return err
			}
			kind, ok := creative.ParseAnalysisType(svc.Config.Pipeline.AnalysisType)
			if !ok {
				return fmt.Errorf("unknown analysis type %q", svc.Config.Pipeline.AnalysisType)
			}
			req := creative.Request{
				Action:       action,
				Competitors:  competitors,
				AdIDs:        adIDs,
				AnalysisType: kind,
				AdsFile:      strings.TrimSpace(opts.adsFile),
				Brand:        creative.Brand{Name: opts.brandName, ProductBenefits: opts.productBenefits},
				Source:       "cli",
				Submitted:    svc.Clock.Now(),
			}
			if cmd.Flags().Changed("min-days") {
				if minDays < 0 {
					return fmt.Errorf("--min-days must not be negative, got %d", minDays)
				}
				req.MinDaysActive = &minDays
			}

			summary, runErr := svc.Engine.Run(cmd.Context(), req)
			if err := printJSON(cmd, summary); err != nil {
				svc.Logger.Warn("print summary failed", zap.Error(err))
			}
			if runErr != nil {
				return fmt.Errorf("%s failed: %w", action, runErr)
			}
			return nil
		},
	}

	switch action {
	case creative.ActionFull, creative.ActionScrape:
		cmd.Flags().StringSliceVar(&competitors, "competitors", nil, "competitor names or domains (default all)")
		cmd.Flags().IntVar(&minDays, "min-days", 0, "minimum days active (default from config)")
	default:
		cmd.Flags().StringSliceVar(&adIDs, "ad-ids", nil, "only process these ad ids")
	}
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
