package creative

// Merge combines a stored record with a newer observation of the same ad.
// Scrape metadata comes from incoming; downstream fields keep the stored value
// unless incoming carries its own.
func Merge(existing, incoming Record) Record {
	out := incoming
	if out.ID == "" {
		out.ID = existing.ID
	}
	out.Competitor = firstNonEmpty(incoming.Competitor, existing.Competitor)
	out.Domain = firstNonEmpty(incoming.Domain, existing.Domain)
	out.BrandName = firstNonEmpty(incoming.BrandName, existing.BrandName)
	out.Platform = firstNonEmpty(incoming.Platform, existing.Platform)
	out.AdText = firstNonEmpty(incoming.AdText, existing.AdText)
	out.MediaURL = firstNonEmpty(incoming.MediaURL, existing.MediaURL)
	out.VideoDuration = firstNonEmpty(incoming.VideoDuration, existing.VideoDuration)
	out.AdLink = firstNonEmpty(incoming.AdLink, existing.AdLink)
	out.MediaType = firstMediaType(incoming.MediaType, existing.MediaType)
	if out.DaysActive == nil {
		out.DaysActive = existing.DaysActive
	}
	if out.ScrapedAt.IsZero() {
		out.ScrapedAt = existing.ScrapedAt
	}

	out.LocalPath = firstNonEmpty(incoming.LocalPath, existing.LocalPath)
	out.DownloadedFrom = firstNonEmpty(incoming.DownloadedFrom, existing.DownloadedFrom)
	out.MediaURI = firstNonEmpty(incoming.MediaURI, existing.MediaURI)

	if incoming.Transcript == "" {
		out.Transcript = existing.Transcript
		out.TranscriptData = existing.TranscriptData
	}
	out.TranscriptFile = firstNonEmpty(incoming.TranscriptFile, existing.TranscriptFile)

	if incoming.Analysis == nil {
		out.Analysis = existing.Analysis
	}
	if incoming.Insights.IsZero() {
		out.Insights = existing.Insights
	}
	out.AnalysisFile = firstNonEmpty(incoming.AnalysisFile, existing.AnalysisFile)

	if incoming.Script == nil {
		out.Script = existing.Script
	}
	out.ScriptFile = firstNonEmpty(incoming.ScriptFile, existing.ScriptFile)

	out.Status = existing.Status.Advance(incoming.Status)
	return out
}

// Dedupe drops records whose ID was already seen, keeping the first occurrence.
func Dedupe(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstMediaType(values ...MediaType) MediaType {
	for _, v := range values {
		if v == MediaVideo {
			return v
		}
	}
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
