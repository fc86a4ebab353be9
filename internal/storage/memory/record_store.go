package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

// RecordStore keeps records by ad id, merging repeat upserts.
type RecordStore struct {
	mu        sync.RWMutex
	records   map[string]creative.Record
	summaries map[string]creative.DailySummary
}

// NewRecordStore constructs a RecordStore.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records:   make(map[string]creative.Record),
		summaries: make(map[string]creative.DailySummary),
	}
}

// UpsertRecord inserts rec or merges it into the stored record with the same id.
func (s *RecordStore) UpsertRecord(_ context.Context, rec creative.Record) error {
	if rec.ID == "" {
		return errors.New("record id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[rec.ID]; ok {
		rec = creative.Merge(existing, rec)
	}
	s.records[rec.ID] = rec
	return nil
}

// UpsertDailySummary replaces the summary for its date.
func (s *RecordStore) UpsertDailySummary(_ context.Context, summary creative.DailySummary) error {
	if summary.Date == "" {
		return errors.New("summary date is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	summary.Competitors = append([]string(nil), summary.Competitors...)
	s.summaries[summary.Date] = summary
	return nil
}

// Get fetches a record by id.
func (s *RecordStore) Get(id string) (creative.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Records returns all records ordered by id.
func (s *RecordStore) Records() []creative.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]creative.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Summary fetches the summary for a date.
func (s *RecordStore) Summary(date string) (creative.DailySummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.summaries[date]
	return sum, ok
}
