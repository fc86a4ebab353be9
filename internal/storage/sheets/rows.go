package sheets

import (
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

// Sheet names.
const (
	AdsSheet     = "Ads"
	ScriptsSheet = "Scripts"
	SummarySheet = "Daily Summary"
)

const (
	transcriptLimit = 5000
	scriptLimit     = 3000
	hooksLimit      = 2000
)

// AdsColumns is the header row of the Ads sheet: the ad id followed by the
// client's creative sheet columns.
var AdsColumns = []string{
	"Ad ID",
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
	"Days Active",
	"Scraped At",
	"Status",
}

// ScriptsColumns is the header row of the Scripts sheet.
var ScriptsColumns = []string{
	"Ad ID",
	"Competitor Name",
	"Brand",
	"Product Benefits",
	"Script",
	"Hook Variations",
	"Based On Transcript",
	"Created At",
}

// SummaryColumns is the header row of the Daily Summary sheet.
var SummaryColumns = []string{
	"Date",
	"Ads Scraped",
	"Transcribed",
	"Analyzed",
	"Scripts Generated",
	"Competitors",
}

// AdRow renders the Ads sheet row for a record.
func AdRow(rec creative.Record) []string {
	var script string
	if rec.Script != nil {
		script = creative.Truncate(rec.Script.Text, scriptLimit)
	}
	days := ""
	if rec.DaysActive != nil {
		days = strconv.Itoa(*rec.DaysActive)
	}
	scraped := ""
	if !rec.ScrapedAt.IsZero() {
		scraped = rec.ScrapedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		rec.ID,
		FileLink(rec),
		rec.Competitor,
		Platform(rec),
		creative.Truncate(rec.Transcript, transcriptLimit),
		rec.Insights.TopHooks,
		rec.Insights.TopAngles,
		rec.Insights.PainPoints,
		rec.Insights.EmotionalTriggers,
		rec.Insights.WhyItWorks,
		script,
		HookVariations(rec.Script),
		days,
		scraped,
		StatusLabel(rec.Status),
	}
}

// ScriptRow renders the Scripts sheet row, or nil when the record has no script.
func ScriptRow(rec creative.Record) []string {
	if rec.Script == nil {
		return nil
	}
	s := rec.Script
	return []string{
		rec.ID,
		rec.Competitor,
		s.BrandName,
		s.ProductBenefits,
		creative.Truncate(s.Text, scriptLimit),
		HookVariations(s),
		s.BasedOnTranscript,
		s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// SummaryRow renders the Daily Summary row.
func SummaryRow(s creative.DailySummary) []string {
	return []string{
		s.Date,
		strconv.Itoa(s.Scraped),
		strconv.Itoa(s.Transcribed),
		strconv.Itoa(s.Analyzed),
		strconv.Itoa(s.Scripted),
		strings.Join(s.Competitors, ", "),
	}
}

// FileLink prefers the uploaded media link, then the local file, then the source URL.
func FileLink(rec creative.Record) string {
	switch {
	case rec.MediaURI != "":
		return rec.MediaURI
	case rec.LocalPath != "":
		return rec.LocalPath
	default:
		return rec.MediaURL
	}
}

// Platform returns the record platform, inferring it from the media URL when unknown.
func Platform(rec creative.Record) string {
	if rec.Platform != "" && rec.Platform != "Unknown" {
		return rec.Platform
	}
	lower := strings.ToLower(rec.MediaURL)
	switch {
	case strings.Contains(lower, "facebook"), strings.Contains(lower, "fbcdn"):
		return "Facebook"
	case strings.Contains(lower, "tiktok"):
		return "TikTok"
	case strings.Contains(lower, "youtube"):
		return "YouTube"
	default:
		return "Unknown"
	}
}

// HookVariations picks the formatted variations, then the inline section of
// the script, then the script's hook block.
func HookVariations(s *creative.Script) string {
	if s == nil {
		return ""
	}
	if s.HookVariations != "" {
		return creative.Truncate(s.HookVariations, hooksLimit)
	}
	if _, after, ok := strings.Cut(s.Text, "HOOK VARIATIONS"); ok {
		return creative.Truncate(strings.TrimSpace(after), hooksLimit)
	}
	if _, after, ok := strings.Cut(s.Text, "[HOOK"); ok {
		block, _, _ := strings.Cut(after, "[")
		return "Option 1: " + creative.Truncate(strings.TrimSpace(block), 500)
	}
	return ""
}

// StatusLabel renders the pipeline status for the sheet.
func StatusLabel(s creative.Status) string {
	switch s {
	case creative.StatusScripted, creative.StatusStored:
		return "Processed"
	case "":
		return ""
	default:
		return strings.ToUpper(string(s[:1])) + string(s[1:])
	}
}
