package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/config"
	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/pipeline/fakes"
	"github.com/JakeFAU/creative-intel/internal/storage/files"
)

type recordingEngine struct {
	mu   sync.Mutex
	reqs []creative.Request
	err  error
}

func (e *recordingEngine) Run(_ context.Context, req creative.Request) (creative.RunSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reqs = append(e.reqs, req)
	if e.err != nil {
		return creative.RunSummary{RunID: "run-1", Status: "error", Error: e.err.Error()}, e.err
	}
	return creative.RunSummary{RunID: "run-1", Status: "complete", TotalAds: 2}, nil
}

func (e *recordingEngine) Status(context.Context) (creative.RunState, error) {
	return creative.RunState{State: creative.RunIdle}, nil
}

// swapServices replaces the service factory for one test and returns how many
// times the services were closed. Tests using it cannot run in parallel.
func swapServices(t *testing.T, engine Engine) *atomic.Int32 {
	t.Helper()
	closed := &atomic.Int32{}
	orig := newServices
	newServices = func(_ context.Context, cfg config.Config, logger *zap.Logger) (*Services, error) {
		return &Services{
			Config: cfg,
			Logger: logger,
			Engine: engine,
			Clock:  fakes.Clock{T: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)},
			IDs:    &fakes.IDs{},
			close:  func() { closed.Add(1) },
		}, nil
	}
	t.Cleanup(func() { newServices = orig })
	return closed
}

func writeConfig(t *testing.T, dataDir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
logging:
  development: false
  level: error
paths:
  data_dir: ` + dataDir + `
atria:
  email: ops@example.com
  password: secret
assemblyai:
  api_key: aai
anthropic:
  api_key: ant
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFullCommandBuildsRequestFromFlags(t *testing.T) {
	engine := &recordingEngine{}
	swapServices(t, engine)
	cfgPath := writeConfig(t, t.TempDir())

	out, err := execute(t, "full",
		"--config", cfgPath,
		"--env-file", filepath.Join(t.TempDir(), "none.env"),
		"--competitors", "skinnyfit.com,ColonBroom",
		"--min-days", "14",
		"--brand-name", "Acme",
		"--analysis-type", "hooks",
	)
	require.NoError(t, err)

	require.Len(t, engine.reqs, 1)
	req := engine.reqs[0]
	assert.Equal(t, creative.ActionFull, req.Action)
	assert.Equal(t, []string{"skinnyfit.com", "ColonBroom"}, req.Competitors)
	require.NotNil(t, req.MinDaysActive)
	assert.Equal(t, 14, *req.MinDaysActive)
	assert.Equal(t, "Acme", req.Brand.Name)
	assert.Equal(t, creative.AnalysisHooks, req.AnalysisType)
	assert.Equal(t, "cli", req.Source)

	var summary creative.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 2, summary.TotalAds)
}

func TestFullCommandRejectsNegativeMinDays(t *testing.T) {
	engine := &recordingEngine{}
	closed := swapServices(t, engine)
	cfgPath := writeConfig(t, t.TempDir())

	_, err := execute(t, "full", "--config", cfgPath, "--min-days", "-3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--min-days")
	assert.Empty(t, engine.reqs)
	assert.Equal(t, int32(1), closed.Load())
}

func TestFailedRunStillClosesServices(t *testing.T) {
	engine := &recordingEngine{err: errors.New("transcribe: stage not configured")}
	closed := swapServices(t, engine)
	cfgPath := writeConfig(t, t.TempDir())

	_, err := execute(t, "full", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "full failed")
	assert.Equal(t, int32(1), closed.Load())
}

func TestSuccessfulRunClosesServicesOnce(t *testing.T) {
	closed := swapServices(t, &recordingEngine{})
	cfgPath := writeConfig(t, t.TempDir())

	_, err := execute(t, "scrape", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, int32(1), closed.Load())
}

func TestAnalyzeCommandPassesAdsFileAndIDs(t *testing.T) {
	engine := &recordingEngine{}
	swapServices(t, engine)
	cfgPath := writeConfig(t, t.TempDir())

	_, err := execute(t, "analyze",
		"--config", cfgPath,
		"--ads-file", "data/processed/transcribe_results_x.json",
		"--ad-ids", "ad-1,ad-2",
	)
	require.NoError(t, err)

	require.Len(t, engine.reqs, 1)
	assert.Equal(t, "data/processed/transcribe_results_x.json", engine.reqs[0].AdsFile)
	assert.Equal(t, []string{"ad-1", "ad-2"}, engine.reqs[0].AdIDs)
	assert.Nil(t, engine.reqs[0].MinDaysActive)
}

func TestCommandRejectsInvalidAnalysisType(t *testing.T) {
	swapServices(t, &recordingEngine{})
	cfgPath := writeConfig(t, t.TempDir())

	_, err := execute(t, "analyze", "--config", cfgPath, "--analysis-type", "vibes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis_type")
}

func TestExportCommandWritesClientFiles(t *testing.T) {
	dataDir := t.TempDir()
	cfgPath := writeConfig(t, dataDir)
	processed := filepath.Join(dataDir, "processed")
	input := filepath.Join(processed, "pipeline_results_20260302_093000.json")
	require.NoError(t, files.WriteJSON(input, fakes.Records(2)))

	// Export never builds the pipeline services.
	orig := newServices
	newServices = func(context.Context, config.Config, *zap.Logger) (*Services, error) {
		t.Fatal("export must not initialize services")
		return nil, nil
	}
	t.Cleanup(func() { newServices = orig })

	out, err := execute(t, "export", "--config", cfgPath)
	require.NoError(t, err)

	var written struct{ CSV, XLSX string }
	require.NoError(t, json.Unmarshal([]byte(out), &written))
	assert.FileExists(t, written.CSV)
	assert.FileExists(t, written.XLSX)
	assert.Equal(t, filepath.Join(dataDir, "exports"), filepath.Dir(written.CSV))
}
