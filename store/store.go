package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/use-agent/mapleads/models"
)

// RecordSink persists records outside the process.
type RecordSink interface {
	SaveRecords(ctx context.Context, recs []models.BusinessRecord) (int, error)
}

// RecordStore accumulates unique records across the searches of a process.
// It is safe for concurrent use.
type RecordStore struct {
	mu             sync.RWMutex
	records        []models.BusinessRecord
	seen           map[string]struct{}
	minPhoneDigits int
	logger         *slog.Logger
}

// New creates an empty store.
func New(minPhoneDigits int, logger *slog.Logger) *RecordStore {
	if minPhoneDigits <= 0 {
		minPhoneDigits = models.MinPhoneDigits
	}
	return &RecordStore{
		seen:           make(map[string]struct{}),
		minPhoneDigits: minPhoneDigits,
		logger:         logger,
	}
}

// Add stores rec tagged with group unless a record with the same signature
// is already present. A non-empty group replaces the record's own tag. It
// reports whether the record was accepted.
func (s *RecordStore) Add(rec models.BusinessRecord, group string) bool {
	if group != "" {
		rec.SearchGroup = group
	}
	sig := Signature(rec)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[sig]; dup {
		s.logger.Debug("duplicate record dropped", "name", rec.Name, "group", rec.SearchGroup)
		return false
	}
	s.seen[sig] = struct{}{}
	s.records = append(s.records, rec)
	return true
}

// AddAll adds every record of recs under group and returns how many were
// accepted.
func (s *RecordStore) AddAll(recs []models.BusinessRecord, group string) int {
	n := 0
	for _, r := range recs {
		if s.Add(r, group) {
			n++
		}
	}
	return n
}

// Records returns a copy of the stored records in insertion order.
func (s *RecordStore) Records() []models.BusinessRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.BusinessRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Group returns the stored records tagged with group.
func (s *RecordStore) Group(group string) []models.BusinessRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.BusinessRecord
	for _, r := range s.records {
		if r.SearchGroup == group {
			out = append(out, r)
		}
	}
	return out
}

func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Groups returns the record count per search group.
func (s *RecordStore) Groups() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	groups := make(map[string]int)
	for _, r := range s.records {
		groups[r.SearchGroup]++
	}
	return groups
}

// Report summarizes everything stored so far.
func (s *RecordStore) Report() models.Summary {
	return Summarize(s.Records(), s.minPhoneDigits)
}

// Flush writes the stored records to sink. Records already persisted are
// ignored by the sink, so Flush may be called repeatedly.
func (s *RecordStore) Flush(ctx context.Context, sink RecordSink) error {
	recs := s.Records()
	if len(recs) == 0 {
		return nil
	}
	n, err := sink.SaveRecords(ctx, recs)
	if err != nil {
		return fmt.Errorf("flush records: %w", err)
	}
	s.logger.Info("records flushed", "total", len(recs), "inserted", n)
	return nil
}
