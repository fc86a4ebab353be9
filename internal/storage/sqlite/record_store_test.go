package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

func openTestStore(t *testing.T) *RecordStore {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "creative.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestUpsertRecordMergesAcrossRuns(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertRecord(ctx, creative.Record{
		ID: "ad1", Competitor: "SkinnyFit", Transcript: "hello", Status: creative.StatusTranscribed,
	}))
	require.NoError(t, store.UpsertRecord(ctx, creative.Record{
		ID: "ad1", Competitor: "SkinnyFit", AdText: "new copy", Status: creative.StatusScraped,
	}))
	require.NoError(t, store.UpsertRecord(ctx, creative.Record{ID: "ad0", Competitor: "ColonBroom"}))

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "ad0", records[0].ID)
	require.Equal(t, "hello", records[1].Transcript)
	require.Equal(t, "new copy", records[1].AdText)
	require.Equal(t, creative.StatusTranscribed, records[1].Status)
}

func TestUpsertDailySummaryReplaces(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertDailySummary(ctx, creative.DailySummary{Date: "2026-10-15", Scraped: 1}))
	require.NoError(t, store.UpsertDailySummary(ctx, creative.DailySummary{Date: "2026-10-15", Scraped: 7, Competitors: []string{"A", "B"}}))

	var scraped int
	var comps string
	row := store.db.QueryRowContext(ctx, `SELECT ads_scraped, competitors FROM daily_summary WHERE summary_date = ?`, "2026-10-15")
	require.NoError(t, row.Scan(&scraped, &comps))
	require.Equal(t, 7, scraped)
	require.Equal(t, "A, B", comps)
}

func TestOpenAndUpsertValidation(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), " ")
	require.Error(t, err)

	store := openTestStore(t)
	require.Error(t, store.UpsertRecord(context.Background(), creative.Record{}))
}
