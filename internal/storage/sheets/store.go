// Package sheets writes ad records, scripts and daily summaries to a Google
// Sheets spreadsheet, one row per ad id.
package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

type sheetDef struct {
	name    string
	columns []string
}

var sheetDefs = []sheetDef{
	{name: AdsSheet, columns: AdsColumns},
	{name: ScriptsSheet, columns: ScriptsColumns},
	{name: SummarySheet, columns: SummaryColumns},
}

// Store implements creative.RecordStore and creative.SummaryStore on Sheets.
type Store struct {
	api    valuesAPI
	logger *zap.Logger

	mu    sync.Mutex
	ready bool
}

// Open connects to the spreadsheet with the given client options, typically
// option.WithCredentialsFile.
func Open(ctx context.Context, spreadsheetID string, logger *zap.Logger, opts ...option.ClientOption) (*Store, error) {
	api, err := newServiceAPI(ctx, spreadsheetID, opts...)
	if err != nil {
		return nil, err
	}
	return New(api, logger)
}

// New wraps a Sheets client.
func New(api valuesAPI, logger *zap.Logger) (*Store, error) {
	if api == nil {
		return nil, fmt.Errorf("sheets api is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{api: api, logger: logger}, nil
}

// EnsureSheets creates missing sheets and writes header rows once.
func (s *Store) EnsureSheets(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	titles, err := s.api.SheetTitles(ctx)
	if err != nil {
		return fmt.Errorf("list sheets: %w", err)
	}
	existing := make(map[string]bool, len(titles))
	for _, t := range titles {
		existing[t] = true
	}
	for _, def := range sheetDefs {
		if !existing[def.name] {
			if err := s.api.AddSheet(ctx, def.name); err != nil {
				return fmt.Errorf("add sheet %q: %w", def.name, err)
			}
			s.logger.Info("created sheet", zap.String("sheet", def.name))
		}
		header, err := s.api.Get(ctx, rowRange(def.name, 1, len(def.columns)))
		if err != nil {
			return fmt.Errorf("read %q header: %w", def.name, err)
		}
		if len(header) == 0 || len(header[0]) == 0 {
			if err := s.api.Update(ctx, rowRange(def.name, 1, len(def.columns)), [][]any{toCells(def.columns)}); err != nil {
				return fmt.Errorf("write %q header: %w", def.name, err)
			}
		}
	}
	s.ready = true
	return nil
}

// UpsertRecord writes the Ads row and, when a script exists, the Scripts row.
func (s *Store) UpsertRecord(ctx context.Context, rec creative.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if err := s.EnsureSheets(ctx); err != nil {
		return err
	}
	if err := s.upsertRow(ctx, AdsSheet, AdRow(rec)); err != nil {
		return err
	}
	if row := ScriptRow(rec); row != nil {
		if err := s.upsertRow(ctx, ScriptsSheet, row); err != nil {
			return err
		}
	}
	return nil
}

// UpsertDailySummary writes the Daily Summary row for the summary date.
func (s *Store) UpsertDailySummary(ctx context.Context, summary creative.DailySummary) error {
	if summary.Date == "" {
		return fmt.Errorf("summary date is required")
	}
	if err := s.EnsureSheets(ctx); err != nil {
		return err
	}
	return s.upsertRow(ctx, SummarySheet, SummaryRow(summary))
}

// upsertRow finds the row whose first cell equals row[0]. A match is updated
// in place with empty incoming cells keeping their stored value; otherwise the
// row is appended.
func (s *Store) upsertRow(ctx context.Context, sheet string, row []string) error {
	keys, err := s.api.Get(ctx, quote(sheet)+"!A:A")
	if err != nil {
		return fmt.Errorf("read %q keys: %w", sheet, err)
	}
	index := -1
	for i, r := range keys {
		if i == 0 || len(r) == 0 {
			continue
		}
		if fmt.Sprint(r[0]) == row[0] {
			index = i + 1
			break
		}
	}

	if index < 0 {
		if err := s.api.Append(ctx, quote(sheet)+"!A1", [][]any{toCells(row)}); err != nil {
			return fmt.Errorf("append %q row %s: %w", sheet, row[0], err)
		}
		s.logger.Debug("appended row", zap.String("sheet", sheet), zap.String("key", row[0]))
		return nil
	}

	rng := rowRange(sheet, index, len(row))
	current, err := s.api.Get(ctx, rng)
	if err != nil {
		return fmt.Errorf("read %q row %d: %w", sheet, index, err)
	}
	var existing []any
	if len(current) > 0 {
		existing = current[0]
	}
	if err := s.api.Update(ctx, rng, [][]any{mergeCells(existing, row)}); err != nil {
		return fmt.Errorf("update %q row %d: %w", sheet, index, err)
	}
	s.logger.Debug("updated row", zap.String("sheet", sheet), zap.String("key", row[0]), zap.Int("row", index))
	return nil
}

func mergeCells(existing []any, incoming []string) []any {
	out := make([]any, len(incoming))
	for i, v := range incoming {
		if v == "" && i < len(existing) {
			out[i] = existing[i]
			continue
		}
		out[i] = v
	}
	return out
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func quote(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// rowRange is the A1 range covering width cells of one row.
func rowRange(sheet string, row, width int) string {
	return fmt.Sprintf("%s!A%d:%s%d", quote(sheet), row, columnLetter(width), row)
}

func columnLetter(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
