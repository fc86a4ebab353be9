// Package postgres persists ad records in Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// RecordStoreConfig controls the Postgres connection pool used for ad rows.
type RecordStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// RecordStore upserts ad rows and daily summaries into Postgres.
type RecordStore struct {
	pool  execCloser
	table string
}

// NewRecordStore creates a Postgres-backed RecordStore using the provided config.
func NewRecordStore(ctx context.Context, cfg RecordStoreConfig) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RecordStore{pool: pool, table: table}, nil
}

// NewRecordStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecordStoreWithPool(pool execCloser, table string) (*RecordStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &RecordStore{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = "ad_records"
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the record and summary tables when they are missing.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id TEXT PRIMARY KEY,
	competitor TEXT NOT NULL DEFAULT '',
	domain TEXT NOT NULL DEFAULT '',
	platform TEXT NOT NULL DEFAULT '',
	days_active INTEGER,
	ad_text TEXT NOT NULL DEFAULT '',
	media_url TEXT NOT NULL DEFAULT '',
	media_type TEXT NOT NULL DEFAULT '',
	media_uri TEXT NOT NULL DEFAULT '',
	transcript TEXT NOT NULL DEFAULT '',
	insights JSONB,
	script TEXT NOT NULL DEFAULT '',
	hook_variations TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	scraped_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS %[1]s_daily_summary (
	summary_date DATE PRIMARY KEY,
	ads_scraped INTEGER NOT NULL,
	transcribed INTEGER NOT NULL,
	analyzed INTEGER NOT NULL,
	scripts INTEGER NOT NULL,
	competitors TEXT NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// UpsertRecord inserts the record or updates the row with the same id. Empty
// incoming values keep what is already stored.
func (s *RecordStore) UpsertRecord(ctx context.Context, rec creative.Record) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("record store is not configured")
	}
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	var insights []byte
	if !rec.Insights.IsZero() {
		raw, err := json.Marshal(rec.Insights)
		if err != nil {
			return fmt.Errorf("marshal insights: %w", err)
		}
		insights = raw
	}
	var script, hooks string
	if rec.Script != nil {
		script = rec.Script.Text
		hooks = rec.Script.HookVariations
	}
	var scrapedAt *time.Time
	if !rec.ScrapedAt.IsZero() {
		ts := rec.ScrapedAt.UTC()
		scrapedAt = &ts
	}

	query := fmt.Sprintf(`
INSERT INTO %[1]s (
	id,
	competitor,
	domain,
	platform,
	days_active,
	ad_text,
	media_url,
	media_type,
	media_uri,
	transcript,
	insights,
	script,
	hook_variations,
	status,
	scraped_at,
	updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,NOW()
)
ON CONFLICT (id) DO UPDATE SET
	competitor = COALESCE(NULLIF(EXCLUDED.competitor, ''), %[1]s.competitor),
	domain = COALESCE(NULLIF(EXCLUDED.domain, ''), %[1]s.domain),
	platform = COALESCE(NULLIF(EXCLUDED.platform, ''), %[1]s.platform),
	days_active = COALESCE(EXCLUDED.days_active, %[1]s.days_active),
	ad_text = COALESCE(NULLIF(EXCLUDED.ad_text, ''), %[1]s.ad_text),
	media_url = COALESCE(NULLIF(EXCLUDED.media_url, ''), %[1]s.media_url),
	media_type = COALESCE(NULLIF(EXCLUDED.media_type, ''), %[1]s.media_type),
	media_uri = COALESCE(NULLIF(EXCLUDED.media_uri, ''), %[1]s.media_uri),
	transcript = COALESCE(NULLIF(EXCLUDED.transcript, ''), %[1]s.transcript),
	insights = COALESCE(EXCLUDED.insights, %[1]s.insights),
	script = COALESCE(NULLIF(EXCLUDED.script, ''), %[1]s.script),
	hook_variations = COALESCE(NULLIF(EXCLUDED.hook_variations, ''), %[1]s.hook_variations),
	status = COALESCE(NULLIF(EXCLUDED.status, ''), %[1]s.status),
	scraped_at = COALESCE(EXCLUDED.scraped_at, %[1]s.scraped_at),
	updated_at = NOW()`, s.table)

	args := []any{
		rec.ID,
		rec.Competitor,
		rec.Domain,
		rec.Platform,
		rec.DaysActive,
		rec.AdText,
		rec.MediaURL,
		string(rec.MediaType),
		rec.MediaURI,
		rec.Transcript,
		insights,
		script,
		hooks,
		string(rec.Status),
		scrapedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// UpsertDailySummary writes the summary row for its date.
func (s *RecordStore) UpsertDailySummary(ctx context.Context, summary creative.DailySummary) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("record store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s_daily_summary (summary_date, ads_scraped, transcribed, analyzed, scripts, competitors)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (summary_date) DO UPDATE SET
	ads_scraped = EXCLUDED.ads_scraped,
	transcribed = EXCLUDED.transcribed,
	analyzed = EXCLUDED.analyzed,
	scripts = EXCLUDED.scripts,
	competitors = EXCLUDED.competitors`, s.table)
	_, err := s.pool.Exec(ctx, query,
		summary.Date,
		summary.Scraped,
		summary.Transcribed,
		summary.Analyzed,
		summary.Scripted,
		strings.Join(summary.Competitors, ", "),
	)
	if err != nil {
		return fmt.Errorf("upsert daily summary: %w", err)
	}
	return nil
}
