package transcriber

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/storage/files"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeAPI struct {
	mu        sync.Mutex
	submitted []string
	polls     map[string]int
	// pending is how many Get calls return "processing" before completion.
	pending int
	fail    map[string]bool
}

func (f *fakeAPI) Submit(_ context.Context, media io.Reader) (Job, error) {
	data, err := io.ReadAll(media)
	if err != nil {
		return Job{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := string(data)
	f.submitted = append(f.submitted, id)
	return Job{ID: id, Status: StatusQueued}, nil
}

func (f *fakeAPI) Get(_ context.Context, id string) (Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.polls == nil {
		f.polls = map[string]int{}
	}
	f.polls[id]++
	if f.fail[id] {
		return Job{ID: id, Status: StatusError, Error: "audio too short"}, nil
	}
	if f.polls[id] <= f.pending {
		return Job{ID: id, Status: StatusProcessing}, nil
	}
	return Job{
		ID:         id,
		Status:     StatusCompleted,
		Text:       "transcript for " + id,
		Confidence: 0.93,
		WordCount:  3,
		Highlights: []creative.Highlight{{Text: "belly fat", Count: 2, Rank: 0.8}},
	}, nil
}

func newTestTranscriber(t *testing.T, api API) *Transcriber {
	t.Helper()
	tr, err := New(api, Config{Dir: t.TempDir(), PollInterval: time.Millisecond, Timeout: time.Second},
		nil, fixedClock{time.Unix(1700000000, 0).UTC()}, zap.NewNop())
	require.NoError(t, err)
	tr.sleep = func(context.Context, time.Duration) error { return nil }
	return tr
}

func writeMedia(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestTranscribeCompletes(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{pending: 2}
	tr := newTestTranscriber(t, api)
	rec := &creative.Record{ID: "ad1", LocalPath: writeMedia(t, t.TempDir(), "VIDEO_x_ad1.mp4", "ad1"), Status: creative.StatusDownloaded}

	require.NoError(t, tr.Transcribe(context.Background(), rec))
	require.Equal(t, "transcript for ad1", rec.Transcript)
	require.Equal(t, creative.StatusTranscribed, rec.Status)
	require.NotNil(t, rec.TranscriptData)
	require.Equal(t, 0.93, rec.TranscriptData.Confidence)
	require.Equal(t, 3, api.polls["ad1"])

	var saved creative.Transcript
	require.NoError(t, files.ReadJSON(rec.TranscriptFile, &saved))
	require.Equal(t, "ad1_transcript.json", filepath.Base(rec.TranscriptFile))
	require.Equal(t, "transcript for ad1", saved.Text)
	require.Len(t, saved.Highlights, 1)
}

func TestTranscribeSkipsImagesAndMissingFiles(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	tr := newTestTranscriber(t, api)

	img := &creative.Record{ID: "img", LocalPath: writeMedia(t, t.TempDir(), "x_img.jpg", "img")}
	none := &creative.Record{ID: "none"}

	require.NoError(t, tr.Transcribe(context.Background(), img))
	require.NoError(t, tr.Transcribe(context.Background(), none))
	require.Empty(t, img.Transcript)
	require.Empty(t, none.Transcript)
	require.Empty(t, api.submitted)
}

func TestTranscribeErrorStatus(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{fail: map[string]bool{"bad": true}}
	tr := newTestTranscriber(t, api)
	rec := &creative.Record{ID: "bad", LocalPath: writeMedia(t, t.TempDir(), "bad.webm", "bad")}

	err := tr.Transcribe(context.Background(), rec)
	require.ErrorIs(t, err, creative.ErrTranscription)
	require.Contains(t, err.Error(), "audio too short")
	require.Empty(t, rec.Transcript)
	require.Empty(t, rec.TranscriptFile)
}

func TestTranscribeTimesOut(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{pending: 1 << 30}
	tr, err := New(api, Config{Dir: t.TempDir(), PollInterval: time.Millisecond, MaxPoll: 2 * time.Millisecond, Timeout: 30 * time.Millisecond},
		nil, fixedClock{}, zap.NewNop())
	require.NoError(t, err)
	rec := &creative.Record{ID: "slow", LocalPath: writeMedia(t, t.TempDir(), "slow.mp4", "slow")}

	err = tr.Transcribe(context.Background(), rec)
	require.ErrorIs(t, err, creative.ErrTranscription)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestBatchFailureDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{fail: map[string]bool{"ad3": true}}
	tr := newTestTranscriber(t, api)
	dir := t.TempDir()

	var transcribed int
	for _, id := range []string{"ad1", "ad2", "ad3", "ad4", "ad5"} {
		rec := &creative.Record{ID: id, LocalPath: writeMedia(t, dir, id+".mp4", id)}
		if err := tr.Transcribe(context.Background(), rec); err != nil {
			require.ErrorIs(t, err, creative.ErrTranscription)
			continue
		}
		transcribed++
	}
	require.Equal(t, 4, transcribed)
}

func TestNextIntervalIsBounded(t *testing.T) {
	t.Parallel()

	d := time.Second
	for i := 0; i < 10; i++ {
		d = nextInterval(d, 5*time.Second)
	}
	require.Equal(t, 5*time.Second, d)
}
