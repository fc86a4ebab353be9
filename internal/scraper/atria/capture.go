package atria

import (
	"regexp"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
)

var videoFilePattern = regexp.MustCompile(`(?i)/([^/?]+\.(?:mp4|webm))(?:\?|$)`)

// videoCapture records video responses seen by the browser, keyed by the
// Atria CDN identifier or, failing that, by file name.
type videoCapture struct {
	mu   sync.Mutex
	urls map[string]string
}

func newVideoCapture() *videoCapture {
	return &videoCapture{urls: make(map[string]string)}
}

func (c *videoCapture) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Response == nil {
		return
	}
	c.observe(resp.Response.URL, resp.Response.MimeType, resp.Response.Status)
}

func (c *videoCapture) observe(rawURL, mimeType string, status int64) {
	if status != 200 {
		return
	}
	lower := strings.ToLower(rawURL)
	isVideo := strings.Contains(lower, ".mp4") ||
		strings.Contains(lower, ".webm") ||
		strings.Contains(lower, "/video") ||
		strings.HasPrefix(strings.ToLower(mimeType), "video/")
	if !isVideo {
		return
	}
	key := AdfilesID(rawURL)
	if key == "" {
		if m := videoFilePattern.FindStringSubmatch(rawURL); m != nil {
			key = m[1]
		}
	}
	if key == "" {
		return
	}
	c.mu.Lock()
	c.urls[key] = rawURL
	c.mu.Unlock()
}

func (c *videoCapture) reset() {
	c.mu.Lock()
	c.urls = make(map[string]string)
	c.mu.Unlock()
}

func (c *videoCapture) snapshot() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.urls))
	for k, v := range c.urls {
		out[k] = v
	}
	return out
}
