package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
	"github.com/custodia-labs/notelink-cli/internal/core/ports/driven"
)

// Ensure FailureStore implements the interface.
var _ driven.FailureStore = (*FailureStore)(nil)

// FailureStore is an in-memory implementation of driven.FailureStore.
type FailureStore struct {
	mu      sync.RWMutex
	records map[string]domain.FailureRecord
}

// NewFailureStore creates a new in-memory failure store.
func NewFailureStore() *FailureStore {
	return &FailureStore{records: make(map[string]domain.FailureRecord)}
}

// Record stores a new failure and returns its generated id.
func (s *FailureStore) Record(_ context.Context, record domain.FailureRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	s.records[record.ID] = record
	return record.ID, nil
}

// UnresolvedItems returns document ids from all unresolved records of kind.
func (s *FailureStore) UnresolvedItems(_ context.Context, kind domain.FailureKind) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make(map[string]bool)
	for _, record := range s.records {
		if record.Kind != kind || record.Resolved {
			continue
		}
		for _, item := range record.Items {
			ids[item.DocumentID] = true
		}
	}
	return ids, nil
}

// List returns all failure records, newest first.
func (s *FailureStore) List(_ context.Context, unresolvedOnly bool) ([]domain.FailureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []domain.FailureRecord
	for _, record := range s.records {
		if unresolvedOnly && record.Resolved {
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].OccurredAt.After(records[j].OccurredAt)
	})
	return records, nil
}

// Resolve marks a record resolved by id.
func (s *FailureStore) Resolve(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	record.Resolved = true
	s.records[id] = record
	return nil
}

// ResolveItems applies per-item resolution to every unresolved record of
// kind: succeeded items are dropped from the record, and a record whose items
// all succeeded is marked resolved.
func (s *FailureStore) ResolveItems(_ context.Context, kind domain.FailureKind, succeeded map[string]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, record := range s.records {
		if record.Kind != kind || record.Resolved || len(record.Items) == 0 {
			continue
		}
		remaining := record.Items[:0:0]
		for _, item := range record.Items {
			if !succeeded[item.DocumentID] {
				remaining = append(remaining, item)
			}
		}
		if len(remaining) == len(record.Items) {
			continue
		}
		if len(remaining) == 0 {
			record.Resolved = true
		} else {
			record.Items = remaining
		}
		s.records[id] = record
	}
	return nil
}

// Prune removes resolved records older than olderThan.
func (s *FailureStore) Prune(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pruned := 0
	for id, record := range s.records {
		if record.Resolved && record.OccurredAt.Before(olderThan) {
			delete(s.records, id)
			pruned++
		}
	}
	return pruned, nil
}
