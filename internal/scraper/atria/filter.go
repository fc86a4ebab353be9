package atria

import (
	"regexp"
	"strings"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

// MatchesFilter reports whether the ad text contains keyword, ignoring case.
// An empty keyword matches everything.
func MatchesFilter(rec creative.Record, keyword string) bool {
	if keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(rec.AdText), strings.ToLower(keyword))
}

// MeetsMinDays reports whether the record has been active long enough.
// Unknown days active only passes when no minimum is set.
func MeetsMinDays(rec creative.Record, minDays int) bool {
	if minDays <= 0 {
		return true
	}
	return rec.DaysActive != nil && *rec.DaysActive >= minDays
}

// Apply keeps the records that pass the competitor's text filter and the
// minimum days active.
func Apply(records []creative.Record, comp creative.Competitor, minDays int) []creative.Record {
	out := make([]creative.Record, 0, len(records))
	for _, rec := range records {
		if !MatchesFilter(rec, comp.Filter) || !MeetsMinDays(rec, minDays) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

var adfilesPattern = regexp.MustCompile(`adfiles/(m\d+)`)

// AdfilesID returns the CDN identifier (m<digits>) embedded in an Atria media URL.
func AdfilesID(rawURL string) string {
	if m := adfilesPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

// ResolveVideoURLs swaps thumbnail URLs for captured video URLs that share the
// same CDN identifier.
func ResolveVideoURLs(records []creative.Record, captured map[string]string) {
	if len(captured) == 0 {
		return
	}
	for i := range records {
		key := AdfilesID(records[i].MediaURL)
		if key == "" {
			continue
		}
		if video, ok := captured[key]; ok {
			records[i].MediaURL = video
			records[i].MediaType = creative.MediaVideo
		}
	}
}
