package pipeline

import "path"

// Folder layout for uploaded artifacts. Drive maps these to nested folders,
// GCS and local disk to object prefixes.
const (
	RawAdsFolder      = "Raw Ads"
	TranscriptsFolder = "Transcripts"
	AnalysisFolder    = "Analysis"
	ScriptsFolder     = "Scripts"
	ArchivesFolder    = "Archives"
)

// Results file prefixes, one per stage.
const (
	ScrapeResults     = "scrape_results"
	TranscribeResults = "transcribe_results"
	AnalyzeResults    = "analyze_results"
	RewriteResults    = "rewrite_results"
	PipelineResults   = "pipeline_results"
)

// MediaPath is the upload path of a competitor's media file.
func MediaPath(competitor, file string) string {
	return path.Join(RawAdsFolder, competitor, file)
}
