package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestStageObservers(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(stageItemsTotal.WithLabelValues("transcribe", "success"))
	ObserveStageItem("transcribe", "success")
	if got := testutil.ToFloat64(stageItemsTotal.WithLabelValues("transcribe", "success")); got != before+1 {
		t.Errorf("expected stage counter to grow by 1, got %f -> %f", before, got)
	}

	ObserveStageDuration("transcribe", 2*time.Second)
	if n := testutil.CollectAndCount(stageDurationSeconds); n <= 0 {
		t.Errorf("expected stage duration to be observed, got %d", n)
	}

	runsBefore := testutil.ToFloat64(runsTotal.WithLabelValues("full", "completed"))
	ObserveRun("full", "completed")
	if got := testutil.ToFloat64(runsTotal.WithLabelValues("full", "completed")); got != runsBefore+1 {
		t.Errorf("expected run counter to grow by 1, got %f", got)
	}

	bytesBefore := testutil.ToFloat64(mediaBytesTotal.WithLabelValues("video"))
	ObserveMediaBytes("video", 0)
	ObserveMediaBytes("video", 1024)
	if got := testutil.ToFloat64(mediaBytesTotal.WithLabelValues("video")); got != bytesBefore+1024 {
		t.Errorf("expected 1024 more bytes, got %f", got-bytesBefore)
	}
}

func TestActiveWorkersGauge(t *testing.T) {
	Init()
	start := testutil.ToFloat64(activeWorkers)
	IncActiveWorkers()
	IncActiveWorkers()
	DecActiveWorkers()
	if got := testutil.ToFloat64(activeWorkers); got != start+1 {
		t.Errorf("expected gauge %f, got %f", start+1, got)
	}
	DecActiveWorkers()
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
