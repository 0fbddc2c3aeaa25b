package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
	"github.com/custodia-labs/notelink-cli/internal/core/ports/driven"
	"github.com/custodia-labs/notelink-cli/internal/logger"
)

// LoadIndexOptions controls IndexService.Load.
type LoadIndexOptions struct {
	// CreateIfMissing synthesises an empty index when none is persisted.
	CreateIfMissing bool

	// DetectOrphans cross-references every record's location against the
	// live vault listing and recomputes the orphan count. Detection only;
	// nothing is removed.
	DetectOrphans bool
}

// IndexService owns the in-memory master index and its derived score graph.
// All reads and mutations of the index go through this service; the graph is
// patched on every mutation so it never observes a partially-applied pair
// set. Per-document updates are buffered and flushed on a debounce timer;
// Flush is the forced synchronous path and must be called before teardown.
type IndexService struct {
	store   driven.IndexStore
	vectors driven.EmbeddingStore
	vault   driven.VaultStore

	mu         sync.Mutex
	index      *domain.MasterIndex
	graph      *domain.ScoreGraph
	dirty      bool
	debounce   time.Duration
	flushTimer *time.Timer
}

// NewIndexService creates an index service. The index is empty until Load.
func NewIndexService(store driven.IndexStore, vectors driven.EmbeddingStore, vault driven.VaultStore, debounce time.Duration) *IndexService {
	return &IndexService{
		store:    store,
		vectors:  vectors,
		vault:    vault,
		index:    domain.NewMasterIndex(),
		graph:    domain.NewScoreGraph(nil),
		debounce: debounce,
	}
}

// Load reads the persisted index, deduplicates inverse pair entries
// defensively, and rebuilds the score graph. Load failure on an existing
// file is reported, never silently recovered.
func (s *IndexService) Load(ctx context.Context, opts LoadIndexOptions) error {
	index, err := s.store.Load(ctx, driven.LoadOptions{CreateIfMissing: opts.CreateIfMissing})
	if err != nil {
		return fmt.Errorf("load master index: %w", err)
	}

	canonicalisePairs(index)

	s.mu.Lock()
	s.index = index
	s.graph = domain.NewScoreGraph(index.Pairs)
	s.dirty = false
	s.mu.Unlock()

	logger.Info("Index loaded: %d documents, %d pairs", len(index.Documents), len(index.Pairs))

	if opts.DetectOrphans {
		if _, err := s.DetectOrphans(ctx); err != nil {
			return err
		}
	}
	return nil
}

// canonicalisePairs re-keys every pair under its canonical key, keeping the
// most recently scored entry when an inverse duplicate slipped in.
func canonicalisePairs(index *domain.MasterIndex) {
	clean := make(map[domain.PairKey]domain.PairScore, len(index.Pairs))
	for _, score := range index.Pairs {
		canonical := domain.NewPairScore(score.ID1, score.ID2, score.SimilarityScore, score.AIScore, score.LastScoredAt)
		if existing, ok := clean[canonical.Key()]; ok && existing.LastScoredAt.After(canonical.LastScoredAt) {
			continue
		}
		clean[canonical.Key()] = canonical
	}
	if len(clean) != len(index.Pairs) {
		logger.Warn("Deduplicated %d inverse pair entries on load", len(index.Pairs)-len(clean))
	}
	index.Pairs = clean
}

// Save recomputes statistics (unless suppressed) and persists the index
// atomically. Save failure propagates: silent loss of index state would
// corrupt future incremental decisions.
func (s *IndexService) Save(ctx context.Context, updateStats bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, updateStats)
}

func (s *IndexService) saveLocked(ctx context.Context, updateStats bool) error {
	if updateStats {
		s.index.RecomputeStats()
	}
	s.index.UpdatedAt = time.Now()
	if err := s.store.Save(ctx, s.index); err != nil {
		return fmt.Errorf("save master index: %w", err)
	}
	s.dirty = false
	if s.flushTimer != nil {
		s.flushTimer.Stop()
		s.flushTimer = nil
	}
	return nil
}

// Flush forces a synchronous save if there are buffered changes.
func (s *IndexService) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	return s.saveLocked(ctx, true)
}

// markDirtyLocked schedules a debounced background flush. The in-memory
// view is already consistent for subsequent reads; only durability is
// deferred, bounded by the debounce interval plus the forced Flush on
// teardown.
func (s *IndexService) markDirtyLocked() {
	s.dirty = true
	if s.debounce <= 0 || s.flushTimer != nil {
		return
	}
	s.flushTimer = time.AfterFunc(s.debounce, func() {
		if err := s.Flush(context.Background()); err != nil {
			logger.Warn("Debounced index flush failed: %v", err)
		}
	})
}

// UpdateDocument upserts a single record. The in-memory view is immediately
// consistent; durability follows on the next flush.
func (s *IndexService) UpdateDocument(record *domain.DocumentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	s.index.Documents[record.ID] = &copied
	s.markDirtyLocked()
}

// DeleteDocument removes the record, every pair score touching it, its
// ledger entries (as source and as target) and its stored vector. Used for
// orphan cleanup and deletion events.
func (s *IndexService) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	s.index.RemoveDocument(id)
	s.graph.RemoveDocument(id)
	s.markDirtyLocked()
	s.mu.Unlock()

	if err := s.vectors.DeleteVector(ctx, id); err != nil {
		return fmt.Errorf("delete vector %s: %w", id, err)
	}
	return nil
}

// Record returns a copy of the record for id, nil when untracked.
func (s *IndexService) Record(id string) *domain.DocumentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.index.Documents[id]
	if !ok {
		return nil
	}
	copied := *record
	return &copied
}

// RecordByLocation returns a copy of the record at a vault path.
func (s *IndexService) RecordByLocation(location string) *domain.DocumentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.index.DocumentByLocation(location)
	if record == nil {
		return nil
	}
	copied := *record
	return &copied
}

// Documents returns a snapshot copy of all records keyed by id.
func (s *IndexService) Documents() map[string]domain.DocumentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[string]domain.DocumentRecord, len(s.index.Documents))
	for id, record := range s.index.Documents {
		snapshot[id] = *record
	}
	return snapshot
}

// MergeScores upserts pair scores and patches the graph.
func (s *IndexService) MergeScores(scores []domain.PairScore) {
	if len(scores) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, score := range scores {
		s.index.PutScore(score)
		s.graph.Add(score)
	}
	s.markDirtyLocked()
}

// InvalidateScores removes every pair score touching id, returning how many
// were dropped. Called when id is re-embedded.
func (s *IndexService) InvalidateScores(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.index.InvalidateScores(id)
	if removed > 0 {
		s.graph.RemoveDocument(id)
		s.markDirtyLocked()
	}
	return removed
}

// ScoresFor returns all pairs touching id, best AI score first.
func (s *IndexService) ScoresFor(id string) []domain.PairScore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.ScoresFor(id)
}

// TopNeighbors returns up to limit neighbour ids of id.
func (s *IndexService) TopNeighbors(id string, limit int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.TopNeighbors(id, limit)
}

// HasPair reports whether the canonical pair exists in the index.
func (s *IndexService) HasPair(id1, id2 string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index.Pairs[domain.PairKeyFor(id1, id2)]
	return ok
}

// LedgerTargets returns the ledger's recorded target list for id.
func (s *IndexService) LedgerTargets(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	targets := s.index.Ledger.Targets(id)
	out := make([]string, len(targets))
	copy(out, targets)
	return out
}

// SetLedgerTargets overwrites the ledger entry for id with exactly targets.
func (s *IndexService) SetLedgerTargets(id string, targets []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index.Ledger.SetTargets(id, targets)
	s.markDirtyLocked()
}

// SourcesLinkingTo returns every source id whose ledger targets include id.
func (s *IndexService) SourcesLinkingTo(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Ledger.SourcesLinkingTo(id)
}

// Stats returns current statistics with counts recomputed.
func (s *IndexService) Stats() domain.IndexStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index.RecomputeStats()
	return s.index.Stats
}

// DetectOrphans cross-references every record's location against the live
// vault listing and records the orphan count. Non-destructive.
func (s *IndexService) DetectOrphans(ctx context.Context) (int, error) {
	refs, err := s.vault.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list vault: %w", err)
	}
	present := make(map[string]bool, len(refs))
	for _, ref := range refs {
		present[ref.Path] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	orphans := 0
	for _, record := range s.index.Documents {
		if !present[record.Location] {
			orphans++
		}
	}
	s.index.Stats.OrphanCount = orphans
	return orphans, nil
}

// OrphanIDs returns the ids of records whose location is missing from the
// vault listing.
func (s *IndexService) OrphanIDs(ctx context.Context) ([]string, error) {
	refs, err := s.vault.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vault: %w", err)
	}
	present := make(map[string]bool, len(refs))
	for _, ref := range refs {
		present[ref.Path] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var orphans []string
	for id, record := range s.index.Documents {
		if !present[record.Location] {
			orphans = append(orphans, id)
		}
	}
	return orphans, nil
}
