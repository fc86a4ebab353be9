// Package export renders pipeline results in the client's 12-column format
// as CSV and XLSX files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/storage/sheets"
)

// SheetName is the worksheet written to XLSX exports.
const SheetName = "Creative Intel"

const (
	notAvailable       = "N/A"
	requiresTranscript = "[Requires transcript]"
	filePrefix         = "client_export_"
	stampLayout        = "20060102_150405"
)

// Columns is the header row of an export.
var Columns = []string{
	"Ad File Name / Link",
	"Competitor Name",
	"Platform (TikTok/FB/YouTube/Native)",
	"Transcript (Raw)",
	"Top Hooks",
	"Top Angles Used",
	"Pain Points",
	"Emotional Triggers",
	"Why This Ad Works",
	"Brand-Aligned Script",
	"Hook Variations (3 Options)",
	"Notes / Approval",
}

// Row renders one record. Analysis columns of records without speech say so
// instead of showing N/A.
func Row(rec creative.Record) []string {
	link := sheets.FileLink(rec)
	if link == "" {
		link = notAvailable
	}
	competitor := rec.Competitor
	if competitor == "" {
		competitor = notAvailable
	}
	row := []string{link, competitor, Platform(rec), transcript(rec)}

	if strings.TrimSpace(rec.Transcript) == "" {
		for range 7 {
			row = append(row, requiresTranscript)
		}
		return append(row, "")
	}

	var script string
	if rec.Script != nil {
		script = rec.Script.Text
	}
	return append(row,
		orNA(rec.Insights.TopHooks),
		orNA(rec.Insights.TopAngles),
		orNA(rec.Insights.PainPoints),
		orNA(rec.Insights.EmotionalTriggers),
		orNA(rec.Insights.WhyItWorks),
		orNA(script),
		orNA(sheets.HookVariations(rec.Script)),
		"",
	)
}

// Platform extends the sheet platform detection with ad text hints.
func Platform(rec creative.Record) string {
	if p := sheets.Platform(rec); p != "Unknown" {
		return p
	}
	text := strings.ToLower(rec.AdText)
	media := strings.ToLower(rec.MediaURL)
	switch {
	case strings.Contains(text, "tiktok"):
		return "TikTok"
	case strings.Contains(text, "youtube"), strings.Contains(media, "youtu.be"):
		return "YouTube"
	case strings.Contains(text, "instagram"):
		return "Instagram"
	case strings.Contains(text, "facebook"), strings.Contains(media, "fb.com"):
		return "Facebook"
	case strings.Contains(media, "tryatria.com"):
		// Atria indexes Meta ads.
		return "Meta (FB/IG)"
	default:
		return "Unknown"
	}
}

func transcript(rec creative.Record) string {
	if strings.TrimSpace(rec.Transcript) != "" {
		return rec.Transcript
	}
	if rec.VideoDuration != "" {
		return fmt.Sprintf("[No speech detected - %s video]", rec.VideoDuration)
	}
	return "[No speech detected in video]"
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

// WriteCSV writes the header and one row per record.
func WriteCSV(w io.Writer, recs []creative.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range recs {
		if err := cw.Write(Row(rec)); err != nil {
			return fmt.Errorf("write csv row %s: %w", rec.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook with a bold, frozen header row.
func WriteXLSX(w io.Writer, recs []creative.Record) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory workbook

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := setRow(f, 1, Columns); err != nil {
		return err
	}
	for i, rec := range recs {
		if err := setRow(f, i+2, Row(rec)); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Columns), 1)
	if err != nil {
		return fmt.Errorf("header range: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	if err := f.SetColWidth(SheetName, "A", "L", 40); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
		return fmt.Errorf("set row %d: %w", row, err)
	}
	return nil
}

// Stats summarizes an export for the operator.
type Stats struct {
	Total        int
	Complete     int
	Incomplete   int
	ByCompetitor map[string]int
	ByPlatform   map[string]int
}

// Summarize counts complete rows (records with a transcript) and groups by
// competitor and platform.
func Summarize(recs []creative.Record) Stats {
	st := Stats{
		Total:        len(recs),
		ByCompetitor: map[string]int{},
		ByPlatform:   map[string]int{},
	}
	for _, rec := range recs {
		if strings.TrimSpace(rec.Transcript) != "" {
			st.Complete++
		}
		st.ByCompetitor[rec.Competitor]++
		st.ByPlatform[Platform(rec)]++
	}
	st.Incomplete = st.Total - st.Complete
	return st
}

// Keys returns the map keys in order, for stable reporting.
func Keys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Files is the pair of paths written by Write.
type Files struct {
	CSV  string
	XLSX string
}

// Write renders recs into dir as client_export_<ts>.csv and .xlsx.
func Write(dir string, at time.Time, recs []creative.Record) (Files, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return Files{}, fmt.Errorf("create export dir: %w", err)
	}
	base := filepath.Join(dir, filePrefix+at.Format(stampLayout))
	out := Files{CSV: base + ".csv", XLSX: base + ".xlsx"}
	if err := writeFile(out.CSV, recs, WriteCSV); err != nil {
		return Files{}, err
	}
	if err := writeFile(out.XLSX, recs, WriteXLSX); err != nil {
		return Files{}, err
	}
	return out, nil
}

func writeFile(path string, recs []creative.Record, render func(io.Writer, []creative.Record) error) (err error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return render(f, recs)
}
