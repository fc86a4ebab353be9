package analysis

import (
	"regexp"
	"strings"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

const (
	sectionLimit   = 1000
	rawInsightSize = 500
)

var (
	hookTypeLine  = regexp.MustCompile(`(?im)^[\s\-*#]*hook type\**:\**\s*(.+)$`)
	mainAngleLine = regexp.MustCompile(`(?im)^[\s\-*#]*main (?:selling )?angle\**:\**\s*(.+)$`)
	painKeywords  = []string{"pain point", "frustration", "problem", "struggle", "challenge"}
)

// section returns the text from the first occurrence of marker up to the
// nearest following terminator, truncated to the section limit.
func section(text, upper, marker string, terminators ...string) string {
	start := strings.Index(upper, marker)
	if start < 0 {
		return ""
	}
	end := len(text)
	from := start + len(marker)
	for _, term := range terminators {
		if idx := strings.Index(upper[from:], term); idx > 0 && from+idx < end {
			end = from + idx
		}
	}
	return creative.Truncate(strings.TrimSpace(text[start:end]), sectionLimit)
}

// painPoints collects a window of context around the first hit of every pain keyword.
func painPoints(text string) string {
	lower := strings.ToLower(text)
	var parts []string
	for _, kw := range painKeywords {
		idx := strings.Index(lower, kw)
		if idx < 0 {
			continue
		}
		from := max(0, idx-50)
		to := min(len(text), idx+200)
		parts = append(parts, strings.ToValidUTF8(text[from:to], ""))
	}
	return creative.Truncate(strings.Join(parts, "\n"), sectionLimit)
}

func firstMatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(strings.Trim(m[1], "*"))
}

// ExtractSections splits free-form analysis text into sheet insight columns.
func ExtractSections(text string) creative.Insights {
	if strings.TrimSpace(text) == "" {
		return creative.Insights{}
	}
	upper := asciiUpper(text)
	out := creative.Insights{
		TopHooks:          section(text, upper, "HOOK", "ANGLE", "EMOTIONAL", "STRUCTURE", "CALL"),
		TopAngles:         section(text, upper, "ANGLE", "EMOTIONAL", "STRUCTURE", "CALL", "KEY"),
		EmotionalTriggers: section(text, upper, "EMOTIONAL", "STRUCTURE", "CALL", "KEY", "TAKEAWAY"),
		PainPoints:        painPoints(text),
		HookType:          firstMatch(hookTypeLine, text),
		MainAngle:         firstMatch(mainAngleLine, text),
	}
	for _, marker := range []string{"KEY TAKEAWAY", "TAKEAWAY"} {
		if idx := strings.Index(upper, marker); idx >= 0 {
			out.WhyItWorks = creative.Truncate(strings.TrimSpace(text[idx:]), sectionLimit)
			break
		}
	}
	return out
}

// asciiUpper upper-cases ASCII letters only so byte offsets stay aligned with s.
func asciiUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'a' <= c && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
