package creative

import (
	"context"
	"io"
	"time"
)

// Scraper collects ad records for the given competitors.
type Scraper interface {
	Scrape(ctx context.Context, competitors []Competitor, minDaysActive int) ([]Record, error)
}

// Downloader fetches the media referenced by a record.
type Downloader interface {
	Download(ctx context.Context, rec *Record) error
}

// Transcriber turns a downloaded media file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, rec *Record) error
}

// Analyzer extracts marketing insights from a transcript.
type Analyzer interface {
	Analyze(ctx context.Context, rec *Record, kind AnalysisType) error
}

// Rewriter generates a brand-aligned script from an analyzed record.
type Rewriter interface {
	Rewrite(ctx context.Context, rec *Record, brand Brand) error
}

// RecordStore persists records idempotently by ID.
type RecordStore interface {
	UpsertRecord(ctx context.Context, rec Record) error
}

// SummaryStore persists the per-day run summary.
type SummaryStore interface {
	UpsertDailySummary(ctx context.Context, summary DailySummary) error
}

// MediaStore uploads artifacts and returns a URI for them.
type MediaStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Notifier delivers outbound events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// StatusStore keeps the latest run state for status reporting.
type StatusStore interface {
	Load(ctx context.Context) (RunState, error)
	Save(ctx context.Context, state RunState) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Hasher produces stable content digests.
type Hasher interface {
	Hash(data []byte) (string, error)
}
