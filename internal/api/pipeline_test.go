package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/dispatcher"
	"github.com/JakeFAU/creative-intel/internal/hash/sha256"
	"github.com/JakeFAU/creative-intel/internal/notify"
	"github.com/JakeFAU/creative-intel/internal/pipeline"
	"github.com/JakeFAU/creative-intel/internal/pipeline/fakes"
	queueMemory "github.com/JakeFAU/creative-intel/internal/queue/memory"
	"github.com/JakeFAU/creative-intel/internal/storage/memory"
	"github.com/JakeFAU/creative-intel/internal/worker"
)

type scenarioHooks struct {
	mu    sync.Mutex
	posts map[string][]map[string]any
}

func (h *scenarioHooks) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.mu.Lock()
	h.posts[r.URL.Path] = append(h.posts[r.URL.Path], body)
	h.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (h *scenarioHooks) batches() []map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]any
	for _, body := range h.posts["/analysis"] {
		if body["event"] == string(creative.EventBatchComplete) {
			out = append(out, body)
		}
	}
	return out
}

func TestFullPipelineWebhookAcceptsThenNotifiesOnce(t *testing.T) {
	t.Parallel()

	hooks := &scenarioHooks{posts: map[string][]map[string]any{}}
	makeSrv := httptest.NewServer(hooks)
	t.Cleanup(makeSrv.Close)

	root := t.TempDir()
	dirs := pipeline.Dirs{RawAds: filepath.Join(root, "raw_ads"), Processed: filepath.Join(root, "processed")}
	require.NoError(t, os.MkdirAll(dirs.RawAds, 0o750))
	status := memory.NewStatusStore()
	clock := fakes.Clock{T: testNow}
	ids := &fakes.IDs{}

	engine, err := pipeline.New(pipeline.Config{
		Dirs:        dirs,
		Competitors: []creative.Competitor{{Name: "SkinnyFit", Domain: "skinnyfit.com"}},
		Brand:       creative.Brand{Name: "ThermoSlim"},
	}, pipeline.Deps{
		Scraper:     &fakes.Scraper{Records: fakes.Records(3)},
		Downloader:  &fakes.Downloader{Dir: dirs.RawAds},
		Transcriber: &fakes.Transcriber{},
		Analyzer:    &fakes.Analyzer{},
		Rewriter:    &fakes.Rewriter{},
		Records:     []creative.RecordStore{memory.NewRecordStore()},
		Notifier: notify.NewMake(notify.MakeConfig{
			NewAdURL:            makeSrv.URL + "/new",
			AnalysisCompleteURL: makeSrv.URL + "/analysis",
			ScriptReadyURL:      makeSrv.URL + "/script",
		}, zap.NewNop()),
		Status: status,
		Clock:  clock,
		IDs:    ids,
		Hasher: sha256.New(),
	}, zap.NewNop())
	require.NoError(t, err)

	q := queueMemory.NewQueue(2)
	w := worker.New(1, q, engine, worker.Config{RunTimeout: time.Minute}, zap.NewNop())
	d := dispatcher.New(q, []*worker.Worker{w})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	srv := httptest.NewServer(NewServer(engine, d, ids, clock, Config{}, zap.NewNop()).Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/webhook/trigger-full-pipeline", "application/json", nil)
	require.NoError(t, err)
	var accepted map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	runID, _ := accepted["run_id"].(string)
	require.NotEmpty(t, runID)

	require.Eventually(t, func() bool {
		return len(hooks.batches()) == 1
	}, 5*time.Second, 20*time.Millisecond)

	batch := hooks.batches()[0]
	assert.Equal(t, runID, batch["run_id"])
	assert.Equal(t, "complete", batch["status"])
	assert.EqualValues(t, 3, batch["total_ads"])
	assert.EqualValues(t, 3, batch["successful"])

	state, err := status.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, creative.RunCompleted, state.State)

	// No further batch notifications trail the run.
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, hooks.batches(), 1)
}
