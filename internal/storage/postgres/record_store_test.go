package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

const upsertPattern = `(?s)INSERT INTO ad_records .*ON CONFLICT \(id\) DO UPDATE SET.*COALESCE\(NULLIF\(EXCLUDED\.transcript, ''\), ad_records\.transcript\)`

func newMockStore(t *testing.T) (*RecordStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	store, err := NewRecordStoreWithPool(mock, "ad_records")
	require.NoError(t, err)
	return store, mock
}

func TestUpsertRecordTwiceUpdatesInPlace(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	scraped := time.Unix(1700000000, 0).UTC()
	days := 10
	first := creative.Record{
		ID:         "ad1",
		Competitor: "SkinnyFit",
		Domain:     "skinnyfit.com",
		Platform:   "Facebook",
		DaysActive: &days,
		MediaURL:   "https://cdn.tryatria.com/adfiles/m1.mp4",
		MediaType:  creative.MediaVideo,
		ScrapedAt:  scraped,
		Status:     creative.StatusScraped,
	}
	second := first
	second.Transcript = "Are you struggling?"
	second.Insights = creative.Insights{TopHooks: "question"}
	second.Script = &creative.Script{Text: "[HOOK]", HookVariations: "1. Question: ?"}
	second.Status = creative.StatusScripted

	mock.ExpectExec(upsertPattern).
		WithArgs("ad1", "SkinnyFit", "skinnyfit.com", "Facebook", &days, "", first.MediaURL, "video", "", "",
			[]byte(nil), "", "", "scraped", &scraped).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(upsertPattern).
		WithArgs("ad1", "SkinnyFit", "skinnyfit.com", "Facebook", &days, "", first.MediaURL, "video", "",
			"Are you struggling?", []byte(`{"top_hooks":"question"}`), "[HOOK]", "1. Question: ?", "scripted", &scraped).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.UpsertRecord(context.Background(), first))
	require.NoError(t, store.UpsertRecord(context.Background(), second))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRecordWrapsErrors(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO ad_records").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := store.UpsertRecord(context.Background(), creative.Record{ID: "ad1"})
	require.ErrorContains(t, err, "upsert record")
	require.NoError(t, mock.ExpectationsWereMet())

	require.Error(t, store.UpsertRecord(context.Background(), creative.Record{}))
}

func TestUpsertDailySummary(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO ad_records_daily_summary`).
		WithArgs("2026-10-15", 9, 6, 5, 4, "SkinnyFit, ColonBroom").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.UpsertDailySummary(context.Background(), creative.DailySummary{
		Date: "2026-10-15", Scraped: 9, Transcribed: 6, Analyzed: 5, Scripted: 4,
		Competitors: []string{"SkinnyFit", "ColonBroom"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS ad_records`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRecordStoreValidation(t *testing.T) {
	t.Parallel()

	_, err := NewRecordStoreWithPool(nil, "")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewRecordStoreWithPool(mock, "ads; DROP TABLE x")
	require.ErrorContains(t, err, "invalid table name")

	_, err = NewRecordStore(context.Background(), RecordStoreConfig{})
	require.ErrorContains(t, err, "db.dsn")
}
