package creative

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMergeKeepsDownstreamFields(t *testing.T) {
	t.Parallel()

	days := 12
	existing := Record{
		ID:         "ad-1",
		Competitor: "SkinnyFit",
		AdText:     "old text",
		Transcript: "hello world",
		Insights:   Insights{TopHooks: "question hook"},
		Script:     &Script{Text: "[HOOK] ..."},
		Status:     StatusScripted,
	}
	incoming := Record{
		ID:         "ad-1",
		Competitor: "SkinnyFit",
		AdText:     "new text",
		DaysActive: &days,
		ScrapedAt:  time.Unix(1700000000, 0).UTC(),
		Status:     StatusScraped,
	}

	merged := Merge(existing, incoming)

	require.Equal(t, "new text", merged.AdText)
	require.Equal(t, 12, merged.DaysActiveValue())
	require.Equal(t, "hello world", merged.Transcript)
	require.Equal(t, "question hook", merged.Insights.TopHooks)
	require.NotNil(t, merged.Script)
	require.Equal(t, StatusScripted, merged.Status)
}

func TestMergePrefersIncomingDownstreamFields(t *testing.T) {
	t.Parallel()

	existing := Record{ID: "ad-2", Transcript: "old", MediaType: MediaVideo}
	incoming := Record{ID: "ad-2", Transcript: "new", MediaType: MediaImage}

	merged := Merge(existing, incoming)

	require.Equal(t, "new", merged.Transcript)
	require.Equal(t, MediaVideo, merged.MediaType)
}

func TestDedupeKeepsFirst(t *testing.T) {
	t.Parallel()

	out := Dedupe([]Record{{ID: "a", AdText: "first"}, {ID: "b"}, {ID: "a", AdText: "second"}})

	require.Len(t, out, 2)
	require.Equal(t, "first", out[0].AdText)
}

func TestStatusAdvanceIsMonotonic(t *testing.T) {
	t.Parallel()

	require.Equal(t, StatusAnalyzed, StatusTranscribed.Advance(StatusAnalyzed))
	require.Equal(t, StatusAnalyzed, StatusAnalyzed.Advance(StatusDownloaded))
	require.Equal(t, StatusScraped, Status("").Advance(StatusScraped))
}

func TestParseAnalysisType(t *testing.T) {
	t.Parallel()

	kind, ok := ParseAnalysisType("")
	require.True(t, ok)
	require.Equal(t, AnalysisFull, kind)

	kind, ok = ParseAnalysisType(" Hooks ")
	require.True(t, ok)
	require.Equal(t, AnalysisHooks, kind)

	_, ok = ParseAnalysisType("vibes")
	require.False(t, ok)
}

func TestStageErrorMatchesKindAndCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("status 500")
	err := fmt.Errorf("batch: %w", NewStageError(ErrTranscription, StageTranscribe, "ad-9", cause))

	require.ErrorIs(t, err, ErrTranscription)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, ErrAnalysis)
	require.Equal(t, ErrTranscription, KindOf(err))
	require.Contains(t, err.Error(), "ad-9")

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, StageTranscribe, stageErr.Stage)
}

func TestCompetitorSearchQuery(t *testing.T) {
	t.Parallel()

	require.Equal(t, "skinnyfit.com", Competitor{Domain: "skinnyfit.com"}.SearchQuery())
	require.Equal(t, "colonbroom.com+GLP1", Competitor{Domain: "colonbroom.com", Filter: "GLP1"}.SearchQuery())
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	require.Equal(t, "héll", Truncate("héllo", 4))
	require.Equal(t, "hi", Truncate("hi", 10))
	require.Equal(t, "", Truncate("hi", 0))
}
