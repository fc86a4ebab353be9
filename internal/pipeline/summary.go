package pipeline

import (
	"sort"
	"time"

	"github.com/JakeFAU/creative-intel/internal/clock/system"
	"github.com/JakeFAU/creative-intel/internal/creative"
)

// DailySummary counts how far each record of a batch got.
func DailySummary(at time.Time, recs []creative.Record) creative.DailySummary {
	s := creative.DailySummary{
		Date:        at.Format(system.DateLayout),
		Scraped:     len(recs),
		Competitors: Competitors(recs),
	}
	for _, r := range recs {
		if r.Transcript != "" {
			s.Transcribed++
		}
		if r.Analysis != nil {
			s.Analyzed++
		}
		if r.Script != nil {
			s.Scripted++
		}
	}
	return s
}

// Competitors returns the sorted distinct competitor names in recs.
func Competitors(recs []creative.Record) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range recs {
		if r.Competitor == "" {
			continue
		}
		if _, ok := seen[r.Competitor]; ok {
			continue
		}
		seen[r.Competitor] = struct{}{}
		out = append(out, r.Competitor)
	}
	sort.Strings(out)
	return out
}

// scripted counts records that reached a generated script.
func scripted(recs []creative.Record) int {
	n := 0
	for _, r := range recs {
		if r.Script != nil {
			n++
		}
	}
	return n
}
