package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
	"github.com/custodia-labs/notelink-cli/internal/core/ports/driven"
	"github.com/custodia-labs/notelink-cli/internal/core/ports/driving"
	"github.com/custodia-labs/notelink-cli/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.Indexer = (*Pipeline)(nil)

// embeddingBatchSize is how many notes are embedded per provider request.
const embeddingBatchSize = 16

// Pipeline runs the full discovery pipeline: change detection, embedding,
// pairwise scoring, link reconciliation and optional tag generation. All
// index writes happen on the single task goroutine; the orchestrator's lock
// serialises runs.
type Pipeline struct {
	index        *IndexService
	reconciler   *Reconciler
	detector     *ChangeDetector
	orchestrator *TaskOrchestrator
	vault        driven.VaultStore
	vectors      driven.EmbeddingStore
	embedder     driven.EmbeddingService
	llm          driven.LLMService
	failures     driven.FailureStore
	settings     domain.Settings
}

// NewPipeline creates a pipeline. embedder and llm may be nil; the pipeline
// then degrades to reconciling from previously stored scores.
func NewPipeline(
	index *IndexService,
	reconciler *Reconciler,
	detector *ChangeDetector,
	orchestrator *TaskOrchestrator,
	vault driven.VaultStore,
	vectors driven.EmbeddingStore,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	failures driven.FailureStore,
	settings domain.Settings,
) *Pipeline {
	return &Pipeline{
		index:        index,
		reconciler:   reconciler,
		detector:     detector,
		orchestrator: orchestrator,
		vault:        vault,
		vectors:      vectors,
		embedder:     embedder,
		llm:          llm,
		failures:     failures,
		settings:     settings,
	}
}

// noteState carries one scanned note through the pipeline.
type noteState struct {
	ref         domain.NoteRef
	note        *domain.Note
	fingerprint string
}

// Run executes the pipeline under the single-flight task lock.
func (p *Pipeline) Run(ctx context.Context, opts driving.RunOptions) error {
	handle, err := p.orchestrator.Begin("index")
	if err != nil {
		return err
	}
	err = p.run(ctx, opts, handle)
	handle.Finish(err)
	return err
}

//nolint:gocyclo // Orchestration function with necessary sequential steps
func (p *Pipeline) run(ctx context.Context, opts driving.RunOptions, handle *TaskHandle) error {
	logger.Section("Index run")

	// 1. SCAN VAULT
	handle.Progress(0, "scanning vault")
	notes, err := p.scanVault(ctx, handle)
	if err != nil {
		return err
	}

	// 2. DETECT CHANGES (smart retry includes prior embedding failures)
	failedEmbeddings, err := p.failures.UnresolvedItems(ctx, domain.FailureKindEmbedding)
	if err != nil {
		return fmt.Errorf("query failure log: %w", err)
	}
	changed := p.detectChanges(notes, opts.Force, failedEmbeddings)
	logger.Info("Changed notes: %d of %d", len(changed), len(notes))

	// Notes named by an unresolved scoring failure keep their embeddings but
	// must be paired again so the failed pairs are re-submitted.
	failedScoring, err := p.failures.UnresolvedItems(ctx, domain.FailureKindScoring)
	if err != nil {
		return fmt.Errorf("query failure log: %w", err)
	}

	// 3. EMBED CHANGED NOTES
	handle.Progress(10, "embedding changed notes")
	if err := p.embedChanged(ctx, handle, notes, changed); err != nil {
		return err
	}
	if err := p.index.Flush(ctx); err != nil {
		return err
	}

	// 4. PAIR CANDIDATES FROM SIMILARITY
	handle.Progress(40, "computing similarities")
	candidates, err := p.similarityCandidates(ctx, handle, notes, changed, failedScoring)
	if err != nil {
		return err
	}
	logger.Info("Candidate pairs: %d", len(candidates))

	// 5. LLM SCORING
	handle.Progress(55, "scoring pairs")
	merged, err := p.scoreCandidates(ctx, handle, candidates)
	if err != nil {
		return err
	}
	if err := p.index.Flush(ctx); err != nil {
		return err
	}

	// 6. RECONCILE AFFECTED DOCUMENTS
	handle.Progress(70, "reconciling links")
	if err := p.reconcileAffected(ctx, handle, changed, merged); err != nil {
		return err
	}

	// 7. TAG GENERATION (optional)
	if opts.GenerateTags || p.settings.GenerateTags {
		handle.Progress(90, "generating tags")
		if err := p.generateTags(ctx, handle, notes, changed); err != nil {
			return err
		}
	}

	// 8. PRUNE OLD RESOLVED FAILURES
	if _, err := p.failures.Prune(ctx, time.Now().Add(-p.settings.FailureRetention)); err != nil {
		logger.Warn("Failure log prune failed: %v", err)
	}

	handle.Progress(100, "saving index")
	return p.index.Save(ctx, true)
}

// scanVault lists, identifies and reads every note. Unreadable notes are
// skipped with a warning, not fatal to the run. Renamed notes have their
// record location updated without re-embedding.
func (p *Pipeline) scanVault(ctx context.Context, handle *TaskHandle) (map[string]*noteState, error) {
	refs, err := p.vault.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vault: %w", err)
	}

	notes := make(map[string]*noteState, len(refs))
	for _, ref := range refs {
		if handle.Cancelled() {
			return nil, p.cancelled(ctx)
		}

		id, err := p.vault.EnsureID(ctx, ref)
		if err != nil {
			logger.Warn("Skipping %s: %v", ref.Path, err)
			continue
		}
		note, err := p.vault.Read(ctx, ref)
		if err != nil {
			logger.Warn("Skipping %s: %v", ref.Path, err)
			continue
		}
		note.ID = id

		if record := p.index.Record(id); record != nil && record.Location != ref.Path {
			logger.Debug("Renamed: %s -> %s", record.Location, ref.Path)
			record.Location = ref.Path
			p.index.UpdateDocument(record)
		}

		notes[id] = &noteState{
			ref:         ref,
			note:        note,
			fingerprint: Fingerprint(note.MainContent),
		}
	}
	return notes, nil
}

// detectChanges returns the ids needing re-embedding, in stable order.
func (p *Pipeline) detectChanges(notes map[string]*noteState, force bool, failedEmbeddings map[string]bool) []string {
	var changed []string
	for id, state := range notes {
		if p.detector.NeedsReprocessing(p.index.Record(id), state.fingerprint, force, failedEmbeddings) {
			changed = append(changed, id)
		}
	}
	sort.Strings(changed)
	return changed
}

// embedChanged fetches embeddings for changed notes in batches. A transient
// provider failure records the batch in the failure log and moves on; a
// configuration failure aborts the run.
func (p *Pipeline) embedChanged(ctx context.Context, handle *TaskHandle, notes map[string]*noteState, changed []string) error {
	if len(changed) == 0 {
		return nil
	}
	if p.embedder == nil {
		logger.Warn("No embedding service configured; %d changed notes left unprocessed", len(changed))
		return nil
	}

	succeeded := make(map[string]bool)
	now := time.Now()

	for start := 0; start < len(changed); start += embeddingBatchSize {
		if handle.Cancelled() {
			return p.cancelled(ctx)
		}
		end := start + embeddingBatchSize
		if end > len(changed) {
			end = len(changed)
		}
		batch := changed[start:end]

		texts := make([]string, len(batch))
		for i, id := range batch {
			texts[i] = notes[id].note.MainContent
		}

		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			if fatal := p.recordBatchFailure(ctx, domain.FailureKindEmbedding, batch, start, notes, err); fatal != nil {
				return fatal
			}
			continue
		}

		for i, id := range batch {
			if err := p.vectors.SaveVector(ctx, id, vectors[i]); err != nil {
				return fmt.Errorf("save vector %s: %w", id, err)
			}

			// Old pair scores were computed against stale content.
			p.index.InvalidateScores(id)

			state := notes[id]
			record := p.index.Record(id)
			if record == nil {
				record = &domain.DocumentRecord{ID: id}
			}
			record.Location = state.ref.Path
			record.ContentFingerprint = state.fingerprint
			record.LastProcessedAt = now
			record.HasFrontMatter = state.note.HasFrontMatter
			record.HasBoundary = state.note.HasBoundary
			record.HasManagedLinks = state.note.ManagedContent != ""
			p.index.UpdateDocument(record)
			succeeded[id] = true
		}
	}

	if len(succeeded) > 0 {
		if err := p.failures.ResolveItems(ctx, domain.FailureKindEmbedding, succeeded); err != nil {
			logger.Warn("Resolving embedding failures: %v", err)
		}
	}
	return nil
}

// similarityCandidates pairs every changed document against every other
// embedded document and keeps pairs above the similarity threshold.
// Documents named by an unresolved scoring failure are seeded into the
// pairing pass as well: their stored pairs survive, and only the missing
// (previously failed) pairs come back as candidates. The canonical pair key
// deduplicates the seed-x-seed overlap.
func (p *Pipeline) similarityCandidates(ctx context.Context, handle *TaskHandle, notes map[string]*noteState, changed []string, rescore map[string]bool) ([]domain.PairCandidate, error) {
	changedSet := make(map[string]bool, len(changed))
	for _, id := range changed {
		changedSet[id] = true
	}

	seeds := append([]string(nil), changed...)
	for id := range rescore {
		if _, ok := notes[id]; ok && !changedSet[id] {
			seeds = append(seeds, id)
		}
	}
	sort.Strings(seeds)

	vectors := make(map[string][]float32)
	loadVector := func(id string) ([]float32, error) {
		if v, ok := vectors[id]; ok {
			return v, nil
		}
		v, err := p.vectors.LoadVector(ctx, id)
		if err != nil {
			return nil, err
		}
		vectors[id] = v
		return v, nil
	}

	seen := make(map[domain.PairKey]bool)
	var candidates []domain.PairCandidate

	for _, id := range seeds {
		if handle.Cancelled() {
			return nil, p.cancelled(ctx)
		}
		vec, err := loadVector(id)
		if errors.Is(err, domain.ErrNotFound) {
			continue // embedding failed this run
		}
		if err != nil {
			return nil, fmt.Errorf("load vector %s: %w", id, err)
		}

		for otherID := range p.index.Documents() {
			if otherID == id {
				continue
			}
			key := domain.PairKeyFor(id, otherID)
			if seen[key] {
				continue
			}
			// Unchanged pairs keep their stored score.
			if !changedSet[otherID] && p.index.HasPair(id, otherID) {
				continue
			}
			otherVec, err := loadVector(otherID)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("load vector %s: %w", otherID, err)
			}

			similarity := domain.Cosine(vec, otherVec)
			if similarity < p.settings.SimilarityThreshold {
				continue
			}
			seen[key] = true
			candidates = append(candidates, p.buildCandidate(key, similarity, notes))
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return domain.PairKeyFor(candidates[i].ID1, candidates[i].ID2) < domain.PairKeyFor(candidates[j].ID1, candidates[j].ID2)
	})
	return candidates, nil
}

func (p *Pipeline) buildCandidate(key domain.PairKey, similarity float64, notes map[string]*noteState) domain.PairCandidate {
	id1, id2 := key.IDs()
	candidate := domain.PairCandidate{ID1: id1, ID2: id2, Similarity: similarity}
	if state, ok := notes[id1]; ok {
		candidate.Excerpt1 = excerpt(state.note.MainContent, p.settings.ExcerptLength)
		candidate.Title1 = state.ref.Title
	}
	if state, ok := notes[id2]; ok {
		candidate.Excerpt2 = excerpt(state.note.MainContent, p.settings.ExcerptLength)
		candidate.Title2 = state.ref.Title
	}
	return candidate
}

// scoreCandidates sends candidate batches to the LLM and merges the results
// into the index. Returns the merged pair scores for affected-set
// computation.
func (p *Pipeline) scoreCandidates(ctx context.Context, handle *TaskHandle, candidates []domain.PairCandidate) ([]domain.PairScore, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if p.llm == nil {
		logger.Warn("No LLM service configured; %d candidate pairs left unscored", len(candidates))
		return nil, nil
	}

	var merged []domain.PairScore
	succeeded := make(map[string]bool)
	now := time.Now()

	for start := 0; start < len(candidates); start += p.settings.ScoringBatchSize {
		if handle.Cancelled() {
			return nil, p.cancelled(ctx)
		}
		end := start + p.settings.ScoringBatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		results, err := p.llm.ScorePairs(ctx, batch)
		if err != nil {
			if fatal := p.recordPairFailure(ctx, batch, start, err); fatal != nil {
				return nil, fatal
			}
			continue
		}

		bySubmission := make(map[domain.PairKey]domain.PairCandidate, len(batch))
		for _, c := range batch {
			bySubmission[domain.PairKeyFor(c.ID1, c.ID2)] = c
		}

		scores := make([]domain.PairScore, 0, len(results))
		for _, result := range results {
			candidate, ok := bySubmission[domain.PairKeyFor(result.ID1, result.ID2)]
			if !ok {
				logger.Warn("LLM returned unknown pair %s/%s", result.ID1, result.ID2)
				continue
			}
			score := domain.NewPairScore(candidate.ID1, candidate.ID2, candidate.Similarity, result.Score, now)
			scores = append(scores, score)
			succeeded[candidate.ID1] = true
			succeeded[candidate.ID2] = true
		}
		p.index.MergeScores(scores)
		merged = append(merged, scores...)
	}

	if len(succeeded) > 0 {
		if err := p.failures.ResolveItems(ctx, domain.FailureKindScoring, succeeded); err != nil {
			logger.Warn("Resolving scoring failures: %v", err)
		}
	}
	return merged, nil
}

// reconcileAffected rewrites the managed region of every affected document.
// A single document's write failure is a warning, not fatal to the batch.
func (p *Pipeline) reconcileAffected(ctx context.Context, handle *TaskHandle, changed []string, merged []domain.PairScore) error {
	affected := p.reconciler.AffectedSet(changed, merged)

	ids := make([]string, 0, len(affected))
	for id := range affected {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	totalAdded, totalRemoved := 0, 0
	for _, id := range ids {
		if handle.Cancelled() {
			return p.cancelled(ctx)
		}
		if p.index.Record(id) == nil {
			continue // deleted since scoring
		}
		desired := p.reconciler.DesiredTargets(id)
		result, err := p.reconciler.Reconcile(ctx, id, desired)
		if err != nil {
			logger.Warn("Reconcile %s failed: %v", id, err)
			continue
		}
		totalAdded += result.Added
		totalRemoved += result.Removed

		if record := p.index.Record(id); record != nil {
			record.HasBoundary = true
			record.HasManagedLinks = len(desired) > 0
			p.index.UpdateDocument(record)
		}
	}
	logger.Info("Reconciled %d documents: +%d -%d links", len(ids), totalAdded, totalRemoved)
	return nil
}

// generateTags asks the LLM for topic tags on changed notes plus notes with
// unresolved tagging failures (smart retry).
func (p *Pipeline) generateTags(ctx context.Context, handle *TaskHandle, notes map[string]*noteState, changed []string) error {
	if p.llm == nil {
		logger.Warn("No LLM service configured; tag generation skipped")
		return nil
	}

	failedTagging, err := p.failures.UnresolvedItems(ctx, domain.FailureKindTagging)
	if err != nil {
		return fmt.Errorf("query failure log: %w", err)
	}

	pending := make(map[string]bool, len(changed))
	for _, id := range changed {
		pending[id] = true
	}
	for id := range failedTagging {
		if _, ok := notes[id]; ok {
			pending[id] = true
		}
	}

	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	succeeded := make(map[string]bool)
	now := time.Now()
	for _, id := range ids {
		if handle.Cancelled() {
			return p.cancelled(ctx)
		}
		state := notes[id]
		tags, err := p.llm.SuggestTags(ctx, state.note.MainContent, p.settings.MaxTags)
		if err != nil {
			if fatal := p.recordBatchFailure(ctx, domain.FailureKindTagging, []string{id}, 0, notes, err); fatal != nil {
				return fatal
			}
			continue
		}
		if err := p.vault.WriteTags(ctx, state.ref, tags); err != nil {
			logger.Warn("Writing tags to %s: %v", state.ref.Path, err)
			continue
		}

		record := p.index.Record(id)
		if record == nil {
			continue
		}
		record.Tags = tags
		generatedAt := now
		record.TagsGeneratedAt = &generatedAt
		p.index.UpdateDocument(record)
		succeeded[id] = true
	}

	if len(succeeded) > 0 {
		if err := p.failures.ResolveItems(ctx, domain.FailureKindTagging, succeeded); err != nil {
			logger.Warn("Resolving tagging failures: %v", err)
		}
	}
	return nil
}

// recordBatchFailure files a failed document batch in the failure log.
// Configuration failures and non-provider errors are returned as fatal;
// transient and content failures return nil so the run continues.
func (p *Pipeline) recordBatchFailure(ctx context.Context, kind domain.FailureKind, batch []string, offset int, notes map[string]*noteState, cause error) error {
	var providerErr *domain.ProviderError
	if !errors.As(cause, &providerErr) {
		return cause
	}
	if providerErr.Kind == domain.ErrorKindConfig {
		return fmt.Errorf("%s provider configuration: %w", kind, cause)
	}

	items := make([]domain.BatchItem, 0, len(batch))
	for i, id := range batch {
		label := id
		if state, ok := notes[id]; ok {
			label = state.ref.Title
		}
		items = append(items, domain.BatchItem{DocumentID: id, Position: offset + i, Label: label})
	}
	record := domain.FailureRecord{
		OccurredAt: time.Now(),
		Kind:       kind,
		Items:      items,
		Message:    providerErr.Message,
		ErrorKind:  providerErr.Kind,
		StatusCode: providerErr.StatusCode,
	}
	if _, err := p.failures.Record(ctx, record); err != nil {
		return fmt.Errorf("record %s failure: %w", kind, err)
	}
	logger.Warn("%s batch failed (%d items): %v", kind, len(batch), cause)
	return nil
}

// recordPairFailure files a failed scoring batch, listing both participants
// of every pair.
func (p *Pipeline) recordPairFailure(ctx context.Context, batch []domain.PairCandidate, offset int, cause error) error {
	var providerErr *domain.ProviderError
	if !errors.As(cause, &providerErr) {
		return cause
	}
	if providerErr.Kind == domain.ErrorKindConfig {
		return fmt.Errorf("scoring provider configuration: %w", cause)
	}

	items := make([]domain.BatchItem, 0, len(batch)*2)
	for i, c := range batch {
		items = append(items,
			domain.BatchItem{DocumentID: c.ID1, Position: offset + i, Label: c.Title1},
			domain.BatchItem{DocumentID: c.ID2, Position: offset + i, Label: c.Title2},
		)
	}
	record := domain.FailureRecord{
		OccurredAt: time.Now(),
		Kind:       domain.FailureKindScoring,
		Items:      items,
		Message:    providerErr.Message,
		ErrorKind:  providerErr.Kind,
		StatusCode: providerErr.StatusCode,
	}
	if _, err := p.failures.Record(ctx, record); err != nil {
		return fmt.Errorf("record scoring failure: %w", err)
	}
	logger.Warn("Scoring batch failed (%d pairs): %v", len(batch), cause)
	return nil
}

// cancelled flushes completed work so everything finished before the
// cancellation point stays durable, then reports the cancellation.
func (p *Pipeline) cancelled(ctx context.Context) error {
	if err := p.index.Flush(ctx); err != nil {
		logger.Warn("Flush on cancellation failed: %v", err)
	}
	return domain.ErrTaskCancelled
}

// Related returns the top related notes for the note at path.
func (p *Pipeline) Related(_ context.Context, path string, limit int) ([]driving.RelatedNote, error) {
	record := p.index.RecordByLocation(path)
	if record == nil {
		return nil, fmt.Errorf("note %s: %w", path, domain.ErrNotFound)
	}

	scores := p.index.ScoresFor(record.ID)
	if limit > 0 && limit < len(scores) {
		scores = scores[:limit]
	}

	related := make([]driving.RelatedNote, 0, len(scores))
	for _, score := range scores {
		other := p.index.Record(score.Other(record.ID))
		if other == nil {
			continue
		}
		related = append(related, driving.RelatedNote{
			Path:       other.Location,
			Title:      noteTitle(other.Location),
			AIScore:    score.AIScore,
			Similarity: score.SimilarityScore,
		})
	}
	return related, nil
}

// CleanupOrphans removes every record whose note no longer exists in the
// vault, with full closure: pair scores, ledger entries and stored vectors.
func (p *Pipeline) CleanupOrphans(ctx context.Context) (int, error) {
	orphans, err := p.index.OrphanIDs(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range orphans {
		if err := p.index.DeleteDocument(ctx, id); err != nil {
			return 0, err
		}
	}
	if len(orphans) > 0 {
		if err := p.index.Save(ctx, true); err != nil {
			return 0, err
		}
	}
	logger.Info("Orphan cleanup removed %d records", len(orphans))
	return len(orphans), nil
}

// Stats refreshes orphan detection and returns index statistics.
func (p *Pipeline) Stats(ctx context.Context) (domain.IndexStats, error) {
	if _, err := p.index.DetectOrphans(ctx); err != nil {
		return domain.IndexStats{}, err
	}
	return p.index.Stats(), nil
}

// HandleVaultEvent applies a rename or delete notification to the index.
// Deletions remove the record with full closure; linking neighbours'
// managed regions reconverge on the next pipeline run.
func (p *Pipeline) HandleVaultEvent(ctx context.Context, event domain.VaultEvent) error {
	switch event.Type {
	case domain.VaultEventDeleted:
		record := p.index.RecordByLocation(event.Path)
		if record == nil {
			return nil
		}
		logger.Info("Note deleted: %s", event.Path)
		if err := p.index.DeleteDocument(ctx, record.ID); err != nil {
			return err
		}
		return p.index.Flush(ctx)

	case domain.VaultEventRenamed:
		record := p.index.RecordByLocation(event.OldPath)
		if record == nil {
			return nil
		}
		logger.Info("Note renamed: %s -> %s", event.OldPath, event.Path)
		record.Location = event.Path
		p.index.UpdateDocument(record)
		return nil

	default:
		return fmt.Errorf("%w: vault event %q", domain.ErrInvalidInput, event.Type)
	}
}

// WatchVault consumes vault notifications until ctx is cancelled.
func (p *Pipeline) WatchVault(ctx context.Context) error {
	events, err := p.vault.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch vault: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return p.index.Flush(context.Background())
		case event, ok := <-events:
			if !ok {
				return p.index.Flush(context.Background())
			}
			if err := p.HandleVaultEvent(ctx, event); err != nil {
				logger.Warn("Vault event %s on %s: %v", event.Type, event.Path, err)
			}
		}
	}
}

// excerpt truncates content for a scoring prompt, never splitting a rune.
func excerpt(content string, maxLen int) string {
	if maxLen <= 0 || len(content) <= maxLen {
		return content
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}
