package downloader

import (
	"regexp"
	"strings"

	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/storage/files"
)

var (
	adfilesWithHash = regexp.MustCompile(`adfiles/(m\d+_[^.]+)\.(?:jpeg|jpg|png)`)
	adfilesID       = regexp.MustCompile(`adfiles/(m\d+)`)
	plainPath       = regexp.MustCompile(`/plain/(adfiles/\S+)`)
	widthParam      = regexp.MustCompile(`/w:\d+/`)
	qualityParam    = regexp.MustCompile(`/q:\d+/`)
)

// Candidates lists the URLs worth trying for a record, in order, without
// duplicates. Video thumbnails on the CDN are mapped to their likely video
// files; image thumbnails are upgraded to full size.
func Candidates(rec creative.Record, cdnBase string) []string {
	mediaURL := rec.MediaURL
	if mediaURL == "" {
		return nil
	}
	cdnHost := hostOf(cdnBase)
	onCDN := cdnHost != "" && strings.Contains(mediaURL, cdnHost)

	var urls []string
	switch {
	case isVideoURL(mediaURL):
		urls = append(urls, mediaURL)
	case rec.IsVideo() && onCDN:
		if m := adfilesWithHash.FindStringSubmatch(mediaURL); m != nil {
			urls = append(urls, cdnBase+"/adfiles/"+m[1]+".mp4")
		}
		if m := adfilesID.FindStringSubmatch(mediaURL); m != nil {
			urls = append(urls, cdnBase+"/adfiles/"+m[1]+".mp4", cdnBase+"/adfiles/"+m[1]+".webm")
		}
		if strings.Contains(mediaURL, "/_images/") {
			if m := plainPath.FindStringSubmatch(mediaURL); m != nil {
				urls = append(urls, cdnBase+"/"+m[1])
			}
		}
		urls = append(urls, mediaURL)
	default:
		if onCDN {
			mediaURL = widthParam.ReplaceAllString(mediaURL, "/w:1920/")
			mediaURL = qualityParam.ReplaceAllString(mediaURL, "/q:100/")
			if m := plainPath.FindStringSubmatch(mediaURL); m != nil {
				urls = append(urls, cdnBase+"/"+m[1])
			}
		}
		urls = append(urls, mediaURL)
	}
	return dedupe(urls)
}

// FileName builds "[VIDEO_]<Competitor_Name>_<id><ext>". Competitor and id
// are reduced to safe file name elements.
func FileName(competitor, id, ext string, video bool) string {
	name := strings.ReplaceAll(files.SafeName(competitor), " ", "_") + "_" + files.SafeName(id) + ext
	if video {
		return "VIDEO_" + name
	}
	return name
}

// extension picks a file extension from the URL or content type and reports
// whether it denotes video.
func extension(url, contentType string) (string, bool) {
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, ".mp4") || strings.Contains(contentType, "video/mp4"):
		return ".mp4", true
	case strings.Contains(lower, ".webm") || strings.Contains(contentType, "video/webm"):
		return ".webm", true
	case strings.Contains(lower, ".png") || strings.Contains(contentType, "image/png"):
		return ".png", false
	case strings.Contains(lower, ".gif") || strings.Contains(contentType, "image/gif"):
		return ".gif", false
	default:
		return ".jpg", false
	}
}

func isVideoURL(url string) bool {
	lower := strings.ToLower(url)
	return strings.Contains(lower, ".mp4") || strings.Contains(lower, ".webm")
}

func hostOf(base string) string {
	base = strings.TrimPrefix(strings.TrimPrefix(base, "https://"), "http://")
	if i := strings.IndexByte(base, '/'); i >= 0 {
		base = base[:i]
	}
	return base
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
