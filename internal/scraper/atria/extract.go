package atria

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/hash/sha256"
)

// cardSelectors are tried in order; the first one yielding valid cards wins.
var cardSelectors = []string{
	`[data-ad-id]`,
	`[class*="AdCard"]`,
	`[class*="ad-card"]`,
	`[class*="creative-card"]`,
	`div[class*="Card"]:has(button:contains("Shop"))`,
	`div[class*="Card"]:has(span:contains(".com"))`,
	`div:has(button:contains("Shop Now"))`,
	`main div:has(video)`,
	`main div:has(button:contains("Shop"))`,
	`[class*="grid"] > div:has(button)`,
}

var videoSelectors = []string{
	`video[src]`,
	`video source[src]`,
	`source[type*="video"]`,
	`source[src*=".mp4"]`,
	`source[src*=".webm"]`,
	`[data-video-src]`,
	`[data-video-url]`,
	`[data-src*=".mp4"]`,
	`[data-src*=".webm"]`,
	`[src*=".mp4"]`,
	`[src*="video"]`,
	`[data-src*="video"]`,
}

var imageSelectors = []string{
	`img[src*="cdn.tryatria.com"]`,
	`img[src*="adfiles"]`,
	`img[src*="1920"]`,
	`img[src*="http"][src*=".jpeg"]`,
	`img[src*="http"][src*=".jpg"]`,
	`img[src*="http"][src*=".png"]`,
	`img[data-src]`,
	`img[src*="http"]`,
}

var (
	domainPattern     = regexp.MustCompile(`([a-zA-Z0-9-]+\.(?:com|co|net|org|io))`)
	dateRangePattern  = regexp.MustCompile(`([A-Za-z]+\s+\d{1,2},?\s+\d{4})\s*[-–]\s*(Present|[A-Za-z]+\s+\d{1,2},?\s+\d{4})`)
	durationPattern   = regexp.MustCompile(`\b(\d{1,2}:\d{2})\b`)
	backgroundPattern = regexp.MustCompile(`url\(["']?(https?://[^"')\s]+)["']?\)`)
)

type platformIndicator struct {
	needle string
	name   string
}

var platformIndicators = []platformIndicator{
	{"facebook", "Facebook"},
	{"meta", "Facebook"},
	{"instagram", "Instagram"},
	{"tiktok", "TikTok"},
	{"youtube", "YouTube"},
	{"google", "Google"},
}

var dateLayouts = []string{"Jan 2, 2006", "Jan 2 2006", "January 2, 2006", "January 2 2006"}

// ParseCards extracts ad records from a rendered discovery page.
func ParseCards(html string, comp creative.Competitor, now time.Time) ([]creative.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse discovery html: %w", err)
	}
	cards := findCards(doc)
	records := make([]creative.Record, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		if rec, ok := extractRecord(card, comp, now); ok {
			records = append(records, rec)
		}
	})
	return creative.Dedupe(records), nil
}

func findCards(doc *goquery.Document) *goquery.Selection {
	for _, sel := range cardSelectors {
		found := innermost(doc.Find(sel)).FilterFunction(func(_ int, s *goquery.Selection) bool {
			text := cardText(s)
			return len(text) > 50 && (strings.Contains(text, ".com") || strings.Contains(text, "Shop"))
		})
		if found.Length() > 0 {
			return found
		}
	}
	return doc.Selection.Slice(0, 0)
}

// innermost drops matches that contain another match, so nested wrappers
// selected by broad :has() selectors do not produce duplicate cards.
func innermost(sel *goquery.Selection) *goquery.Selection {
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("*").Intersection(sel).Length() == 0
	})
}

func extractRecord(card *goquery.Selection, comp creative.Competitor, now time.Time) (creative.Record, bool) {
	text := cardText(card)
	if len(text) < 20 {
		return creative.Record{}, false
	}

	id := firstAttr(card, "data-ad-id", "data-id")
	if id == "" {
		id = sha256.AdID(text)
	}

	mediaURL, mediaType := extractMedia(card)

	rec := creative.Record{
		ID:            id,
		Competitor:    comp.Name,
		Domain:        comp.Domain,
		BrandName:     extractBrand(card),
		Platform:      extractPlatform(card, text),
		AdText:        creative.Truncate(text, 500),
		MediaURL:      mediaURL,
		MediaType:     mediaType,
		FilterKeyword: comp.Filter,
		ScrapedAt:     now,
		Status:        creative.StatusScraped,
	}
	if m := domainPattern.FindStringSubmatch(text); m != nil {
		rec.Domain = m[1]
	}
	rec.DaysActive = parseDaysActive(text, now)
	if m := durationPattern.FindStringSubmatch(text); m != nil {
		rec.VideoDuration = m[1]
		rec.MediaType = creative.MediaVideo
	}
	if href, ok := card.Find("a[href]").First().Attr("href"); ok {
		rec.AdLink = href
	}
	return rec, true
}

func extractMedia(card *goquery.Selection) (string, creative.MediaType) {
	for _, sel := range videoSelectors {
		var found string
		card.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			src := firstAttr(s, "src", "data-src", "data-video-src", "data-video-url")
			if looksLikeVideo(src) {
				found = src
				return false
			}
			return true
		})
		if found != "" {
			return found, creative.MediaVideo
		}
	}
	for _, sel := range imageSelectors {
		var found string
		card.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			src := firstAttr(s, "data-src", "src")
			if len(src) > 20 {
				found = src
				return false
			}
			return true
		})
		if found != "" {
			return found, creative.MediaImage
		}
	}
	if style, ok := card.Find(`[style*="background-image"]`).First().Attr("style"); ok {
		if m := backgroundPattern.FindStringSubmatch(style); m != nil {
			return m[1], creative.MediaImage
		}
	}
	return "", creative.MediaImage
}

func looksLikeVideo(src string) bool {
	lower := strings.ToLower(src)
	return strings.Contains(lower, ".mp4") || strings.Contains(lower, ".webm") || strings.Contains(lower, "video")
}

func extractBrand(card *goquery.Selection) string {
	for _, sel := range []string{"h3", "h4", `[class*="brand"]`, `[class*="name"]`, `[class*="title"]`} {
		if brand := strings.TrimSpace(card.Find(sel).First().Text()); brand != "" {
			return creative.Truncate(brand, 100)
		}
	}
	return ""
}

func extractPlatform(card *goquery.Selection, text string) string {
	lower := strings.ToLower(text)
	for _, ind := range platformIndicators {
		if strings.Contains(lower, ind.needle) {
			return ind.name
		}
	}
	var platform string
	card.Find("img[alt]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		alt, _ := s.Attr("alt")
		altLower := strings.ToLower(alt)
		for _, ind := range platformIndicators {
			if strings.Contains(altLower, ind.needle) {
				platform = ind.name
				return false
			}
		}
		return true
	})
	if platform != "" {
		return platform
	}
	return "Unknown"
}

// parseDaysActive reads "Nov 26, 2025 - Present" style ranges.
func parseDaysActive(text string, now time.Time) *int {
	m := dateRangePattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	start, ok := parseDate(m[1])
	if !ok {
		return nil
	}
	end := now
	if !strings.EqualFold(m[2], "present") {
		parsed, ok := parseDate(m[2])
		if !ok {
			return nil
		}
		end = parsed
	}
	days := int(end.Sub(start).Hours() / 24)
	return &days
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.Join(strings.Fields(raw), " ")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// cardText joins the visible text nodes of a card with single spaces.
func cardText(s *goquery.Selection) string {
	var parts []string
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, node *goquery.Selection) {
			switch goquery.NodeName(node) {
			case "#text":
				if t := strings.TrimSpace(node.Text()); t != "" {
					parts = append(parts, t)
				}
			case "script", "style", "noscript":
			default:
				walk(node)
			}
		})
	}
	walk(s)
	return strings.Join(parts, " ")
}

func firstAttr(s *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := s.Attr(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
