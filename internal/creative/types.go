package creative

import (
	"strings"
	"time"
)

// MediaType distinguishes video ads from static creatives.
type MediaType string

const (
	// MediaVideo marks an ad whose creative is a video.
	MediaVideo MediaType = "video"
	// MediaImage marks an ad whose creative is a still image.
	MediaImage MediaType = "image"
)

// Status tracks how far a record has travelled through the pipeline.
type Status string

const (
	StatusScraped     Status = "scraped"
	StatusDownloaded  Status = "downloaded"
	StatusTranscribed Status = "transcribed"
	StatusAnalyzed    Status = "analyzed"
	StatusScripted    Status = "scripted"
	StatusStored      Status = "stored"
)

var statusRank = map[Status]int{
	StatusScraped:     1,
	StatusDownloaded:  2,
	StatusTranscribed: 3,
	StatusAnalyzed:    4,
	StatusScripted:    5,
	StatusStored:      6,
}

// Advance moves the status forward, never backward.
func (s Status) Advance(next Status) Status {
	if statusRank[next] > statusRank[s] {
		return next
	}
	return s
}

// AnalysisType selects the prompt used by the analyzer.
type AnalysisType string

const (
	AnalysisHooks      AnalysisType = "hooks"
	AnalysisAngles     AnalysisType = "angles"
	AnalysisEmotional  AnalysisType = "emotional"
	AnalysisFull       AnalysisType = "full"
	AnalysisStructured AnalysisType = "structured"
)

// ParseAnalysisType validates a user supplied analysis type. Empty means full.
func ParseAnalysisType(raw string) (AnalysisType, bool) {
	switch t := AnalysisType(strings.ToLower(strings.TrimSpace(raw))); t {
	case "":
		return AnalysisFull, true
	case AnalysisHooks, AnalysisAngles, AnalysisEmotional, AnalysisFull, AnalysisStructured:
		return t, true
	default:
		return "", false
	}
}

// Competitor is a brand whose ads are tracked.
type Competitor struct {
	Name   string `mapstructure:"name" json:"name"`
	Domain string `mapstructure:"domain" json:"domain"`
	Filter string `mapstructure:"filter" json:"filter,omitempty"`
}

// SearchQuery is the discovery query string for the competitor.
func (c Competitor) SearchQuery() string {
	if c.Filter == "" {
		return c.Domain
	}
	return c.Domain + "+" + c.Filter
}

// Brand describes the product new scripts are written for.
type Brand struct {
	Name            string `json:"brand_name"`
	ProductBenefits string `json:"product_benefits"`
}

// Record is one scraped advertisement and everything derived from it.
type Record struct {
	ID            string    `json:"id"`
	Competitor    string    `json:"competitor"`
	Domain        string    `json:"domain"`
	BrandName     string    `json:"brand_name,omitempty"`
	Platform      string    `json:"platform"`
	DaysActive    *int      `json:"days_active,omitempty"`
	AdText        string    `json:"ad_text,omitempty"`
	MediaURL      string    `json:"media_url,omitempty"`
	MediaType     MediaType `json:"media_type,omitempty"`
	VideoDuration string    `json:"video_duration,omitempty"`
	AdLink        string    `json:"ad_link,omitempty"`
	FilterKeyword string    `json:"filter_keyword,omitempty"`
	ScrapedAt     time.Time `json:"scraped_at"`

	LocalPath      string `json:"local_filepath,omitempty"`
	DownloadedFrom string `json:"media_url_downloaded,omitempty"`
	MediaURI       string `json:"media_uri,omitempty"`

	Transcript     string      `json:"transcript,omitempty"`
	TranscriptData *Transcript `json:"transcript_data,omitempty"`
	TranscriptFile string      `json:"transcript_file,omitempty"`

	Analysis     *Analysis `json:"analysis,omitempty"`
	Insights     Insights  `json:"insights"`
	AnalysisFile string    `json:"analysis_file,omitempty"`

	Script     *Script `json:"rewritten_script,omitempty"`
	ScriptFile string  `json:"script_file,omitempty"`

	Status    Status `json:"status"`
	LastError string `json:"last_error,omitempty"`
}

// IsVideo reports whether the record should be treated as a video ad.
func (r Record) IsVideo() bool {
	if r.MediaType == MediaVideo || r.VideoDuration != "" {
		return true
	}
	lower := strings.ToLower(r.MediaURL)
	return strings.Contains(lower, ".mp4") || strings.Contains(lower, ".webm")
}

// DaysActiveValue returns days active or zero when unknown.
func (r Record) DaysActiveValue() int {
	if r.DaysActive == nil {
		return 0
	}
	return *r.DaysActive
}

// Transcript holds the transcription service output for one media file.
type Transcript struct {
	ID          string             `json:"id"`
	FilePath    string             `json:"file_path"`
	Text        string             `json:"text"`
	Confidence  float64            `json:"confidence"`
	WordCount   int                `json:"word_count"`
	Utterances  []Utterance        `json:"utterances,omitempty"`
	Highlights  []Highlight        `json:"highlights,omitempty"`
	Sentiment   []SentimentResult  `json:"sentiment,omitempty"`
	Categories  map[string]float64 `json:"categories,omitempty"`
	Transcribed time.Time          `json:"transcribed_at"`
}

// Utterance is a speaker turn.
type Utterance struct {
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Highlight is a key phrase detected in the audio.
type Highlight struct {
	Text  string  `json:"text"`
	Count int64   `json:"count"`
	Rank  float64 `json:"rank"`
}

// SentimentResult is the sentiment of one sentence.
type SentimentResult struct {
	Text       string  `json:"text"`
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
}

// Analysis is the LLM output for one analysis run.
type Analysis struct {
	Type        AnalysisType `json:"type"`
	Text        string       `json:"analysis"`
	RawResponse string       `json:"raw_response,omitempty"`
	AnalyzedAt  time.Time    `json:"analyzed_at"`
}

// Insights are the spreadsheet-facing fields extracted from an analysis.
type Insights struct {
	TopHooks          string `json:"top_hooks,omitempty"`
	HookType          string `json:"hook_type,omitempty"`
	TopAngles         string `json:"top_angles,omitempty"`
	MainAngle         string `json:"main_angle,omitempty"`
	PainPoints        string `json:"pain_points,omitempty"`
	EmotionalTriggers string `json:"emotional_triggers,omitempty"`
	WhyItWorks        string `json:"why_this_works,omitempty"`
}

// IsZero reports whether no insight was extracted.
func (i Insights) IsZero() bool {
	return i == Insights{}
}

// Script is a generated brand-aligned ad script.
type Script struct {
	Text                 string          `json:"script"`
	HookVariations       string          `json:"hook_variations,omitempty"`
	HookVariationsParsed *HookVariations `json:"hook_variations_parsed,omitempty"`
	BrandName            string          `json:"brand_name"`
	ProductBenefits      string          `json:"product_benefits"`
	BasedOnTranscript    string          `json:"based_on_transcript"`
	CreatedAt            time.Time       `json:"created_at"`
}

// HookVariations are three alternative openings for split testing.
type HookVariations struct {
	Question    string `json:"hook_1_question"`
	Story       string `json:"hook_2_story"`
	Shock       string `json:"hook_3_shock"`
	RawResponse string `json:"raw_response,omitempty"`
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// SelectCompetitors filters all by name or domain, case-insensitively.
// An empty selection returns every competitor.
func SelectCompetitors(all []Competitor, selection []string) []Competitor {
	if len(selection) == 0 {
		return append([]Competitor(nil), all...)
	}
	want := make(map[string]struct{}, len(selection))
	for _, s := range selection {
		want[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	var out []Competitor
	for _, comp := range all {
		_, byName := want[strings.ToLower(comp.Name)]
		_, byDomain := want[strings.ToLower(comp.Domain)]
		if byName || byDomain {
			out = append(out, comp)
		}
	}
	return out
}
