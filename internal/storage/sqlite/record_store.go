// Package sqlite persists ad records in an embedded SQLite file, for single
// machine installs that have no Postgres.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // pure Go driver

	"github.com/JakeFAU/creative-intel/internal/creative"
)

const schema = `
CREATE TABLE IF NOT EXISTS ad_records (
	id TEXT PRIMARY KEY,
	competitor TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS daily_summary (
	summary_date TEXT PRIMARY KEY,
	ads_scraped INTEGER NOT NULL,
	transcribed INTEGER NOT NULL,
	analyzed INTEGER NOT NULL,
	scripts INTEGER NOT NULL,
	competitors TEXT NOT NULL
);`

// RecordStore stores each record as a JSON payload keyed by ad id.
type RecordStore struct {
	db *sql.DB
}

// Open opens (creating when needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*RecordStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY under concurrent workers.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &RecordStore{db: db}, nil
}

// Close closes the database.
func (s *RecordStore) Close() error {
	return s.db.Close()
}

// UpsertRecord merges rec into the stored record with the same id.
func (s *RecordStore) UpsertRecord(ctx context.Context, rec creative.Record) error {
	if rec.ID == "" {
		return errors.New("record id is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var payload string
	err = tx.QueryRowContext(ctx, `SELECT payload FROM ad_records WHERE id = ?`, rec.ID).Scan(&payload)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("load record %s: %w", rec.ID, err)
	default:
		var existing creative.Record
		if err := json.Unmarshal([]byte(payload), &existing); err != nil {
			return fmt.Errorf("decode record %s: %w", rec.ID, err)
		}
		rec = creative.Merge(existing, rec)
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO ad_records (id, competitor, status, payload, updated_at)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
	competitor = excluded.competitor,
	status = excluded.status,
	payload = excluded.payload,
	updated_at = CURRENT_TIMESTAMP`, rec.ID, rec.Competitor, string(rec.Status), string(raw))
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// UpsertDailySummary writes the summary row for its date.
func (s *RecordStore) UpsertDailySummary(ctx context.Context, summary creative.DailySummary) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO daily_summary (summary_date, ads_scraped, transcribed, analyzed, scripts, competitors)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(summary_date) DO UPDATE SET
	ads_scraped = excluded.ads_scraped,
	transcribed = excluded.transcribed,
	analyzed = excluded.analyzed,
	scripts = excluded.scripts,
	competitors = excluded.competitors`,
		summary.Date, summary.Scraped, summary.Transcribed, summary.Analyzed, summary.Scripted,
		strings.Join(summary.Competitors, ", "))
	if err != nil {
		return fmt.Errorf("upsert daily summary: %w", err)
	}
	return nil
}

// List returns every stored record ordered by competitor then id.
func (s *RecordStore) List(ctx context.Context) ([]creative.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM ad_records ORDER BY competitor, id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	var out []creative.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec creative.Record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}
