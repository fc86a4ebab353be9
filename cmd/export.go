package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/clock/system"
	"github.com/JakeFAU/creative-intel/internal/export"
	"github.com/JakeFAU/creative-intel/internal/pipeline"
	"github.com/JakeFAU/creative-intel/internal/storage/files"
)

func newExportCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:         "export",
		Short:       "Export pipeline results in the client's 12-column CSV and XLSX format",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipServices: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := resolveServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()
			paths := svc.Config.Paths
			adsFile, _ := cmd.Flags().GetString("ads-file")
			if adsFile == "" {
				adsFile, err = files.Latest(paths.ProcessedDir(), pipeline.PipelineResults)
				if err != nil {
					return err
				}
			}
			recs, err := files.LoadRecords(adsFile)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = filepath.Join(paths.DataDir, "exports")
			}

			written, err := export.Write(outDir, system.New().Now(), recs)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			st := export.Summarize(recs)
			svc.Logger.Info("export complete",
				zap.String("input", adsFile),
				zap.String("csv", written.CSV),
				zap.String("xlsx", written.XLSX),
				zap.Int("total", st.Total),
				zap.Int("complete", st.Complete),
				zap.Int("incomplete", st.Incomplete),
			)
			for _, name := range export.Keys(st.ByCompetitor) {
				svc.Logger.Info("exported competitor", zap.String("competitor", name), zap.Int("ads", st.ByCompetitor[name]))
			}
			return printJSON(cmd, written)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default <data_dir>/exports)")
	return cmd
}
