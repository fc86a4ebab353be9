// Package notify delivers pipeline events to Make.com scenarios and other sinks.
package notify

import (
	"time"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

// Payload renders the JSON body sent for an event.
func Payload(ev creative.Event) map[string]any {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	out := map[string]any{
		"event":     string(ev.Type),
		"timestamp": ts.Format(time.RFC3339),
	}
	rec := ev.Record
	switch ev.Type {
	case creative.EventNewAd:
		if rec != nil {
			out["ad_id"] = rec.ID
			out["competitor"] = rec.Competitor
			out["domain"] = rec.Domain
			out["platform"] = rec.Platform
			out["days_active"] = rec.DaysActive
			out["media_url"] = rec.MediaURL
			out["local_filepath"] = rec.LocalPath
		}
	case creative.EventAnalysisComplete:
		if rec != nil {
			summary := ""
			if rec.Analysis != nil {
				summary = creative.Truncate(rec.Analysis.Text, 1000)
			}
			out["ad_id"] = rec.ID
			out["competitor"] = rec.Competitor
			out["transcript"] = creative.Truncate(rec.Transcript, 500)
			out["analysis_summary"] = summary
			out["analysis_file"] = rec.AnalysisFile
		}
	case creative.EventScriptReady:
		if rec != nil {
			var preview, brand string
			if rec.Script != nil {
				preview = creative.Truncate(rec.Script.Text, 500)
				brand = rec.Script.BrandName
			}
			out["ad_id"] = rec.ID
			out["competitor"] = rec.Competitor
			out["script_preview"] = preview
			out["brand_name"] = brand
			out["script_file"] = rec.ScriptFile
		}
	case creative.EventBatchComplete:
		if s := ev.Summary; s != nil {
			out["run_id"] = s.RunID
			out["status"] = s.Status
			out["total_ads"] = s.TotalAds
			out["successful"] = s.Successful
			out["failed"] = s.Failed
			out["competitors_processed"] = s.Competitors
			out["duration_seconds"] = s.DurationSeconds
			out["results_file"] = s.ResultsFile
		}
	}
	return out
}
