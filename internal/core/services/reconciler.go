package services

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
	"github.com/custodia-labs/notelink-cli/internal/core/ports/driven"
	"github.com/custodia-labs/notelink-cli/internal/logger"
)

// Reconciler converges each note's managed link region to its currently
// desired neighbour set. It never touches the user-authored region, never
// writes duplicates, and is idempotent: running it twice with unchanged
// desired input produces no further edits.
type Reconciler struct {
	index    *IndexService
	vault    driven.VaultStore
	settings domain.Settings
}

// NewReconciler creates a reconciler.
func NewReconciler(index *IndexService, vault driven.VaultStore, settings domain.Settings) *Reconciler {
	return &Reconciler{index: index, vault: vault, settings: settings}
}

// DesiredTargets computes the directional neighbour set for which id is the
// link source. Links are unidirectional: each qualifying pair is written by
// its canonical first participant only, so A->B is never mirrored as B->A.
// Qualifying pairs must meet both thresholds; targets are deduplicated,
// ordered by AI score descending and truncated to the configured maximum.
func (r *Reconciler) DesiredTargets(id string) []string {
	scores := r.index.ScoresFor(id)

	seen := make(map[string]bool)
	var targets []string
	for _, score := range scores {
		if score.ID1 != id {
			continue // the other participant owns this link
		}
		if !score.Qualifies(r.settings.SimilarityThreshold, r.settings.MinAIScore) {
			continue
		}
		target := score.Other(id)
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true
		targets = append(targets, target)
		if len(targets) >= r.settings.MaxLinks {
			break
		}
	}
	return targets
}

// ReconcileResult reports what a reconciliation changed.
type ReconcileResult struct {
	Added   int
	Removed int
}

// Reconcile diffs desired against the ledger's previously recorded targets
// for id, rewrites the note's managed region wholesale in desired order,
// then overwrites the ledger entry with exactly the desired set. The ledger
// update never precedes the file write: a crash in between is a recoverable
// inconsistency, the reverse is not.
func (r *Reconciler) Reconcile(ctx context.Context, id string, desired []string) (ReconcileResult, error) {
	record := r.index.Record(id)
	if record == nil {
		return ReconcileResult{}, fmt.Errorf("reconcile %s: %w", id, domain.ErrNotFound)
	}

	// Resolve targets to display references. Targets that no longer resolve
	// (deleted or orphaned) are silently dropped, not errors.
	resolved := make([]string, 0, len(desired))
	titles := make([]string, 0, len(desired))
	for _, target := range desired {
		targetRecord := r.index.Record(target)
		if targetRecord == nil {
			continue
		}
		resolved = append(resolved, target)
		titles = append(titles, noteTitle(targetRecord.Location))
	}

	previous := r.index.LedgerTargets(id)
	result := ReconcileResult{
		Added:   len(difference(resolved, previous)),
		Removed: len(difference(previous, resolved)),
	}

	ref := domain.NoteRef{Path: record.Location, Title: noteTitle(record.Location)}
	if err := r.vault.WriteManagedRegion(ctx, ref, RenderLinkSection(titles)); err != nil {
		return ReconcileResult{}, fmt.Errorf("write managed region %s: %w", record.Location, err)
	}

	// Exact overwrite, not previous plus/minus the diff: this is what makes
	// the operation idempotent.
	r.index.SetLedgerTargets(id, resolved)

	if result.Added > 0 || result.Removed > 0 {
		logger.Debug("Reconciled %s: +%d -%d links", record.Location, result.Added, result.Removed)
	}
	return result, nil
}

// AffectedSet computes which documents need reconciliation after a batch of
// changes: every changed document, every participant of a newly scored
// pair, and every document whose recorded ledger targets include a changed
// document. The reverse-neighbour leg matters because a changed document
// may have dropped below threshold for a neighbour that links to it.
func (r *Reconciler) AffectedSet(changed []string, newPairs []domain.PairScore) map[string]bool {
	affected := make(map[string]bool, len(changed))
	for _, id := range changed {
		affected[id] = true
	}
	for _, pair := range newPairs {
		affected[pair.ID1] = true
		affected[pair.ID2] = true
	}
	for _, id := range changed {
		for _, source := range r.index.SourcesLinkingTo(id) {
			affected[source] = true
		}
	}
	return affected
}

// RenderLinkSection renders the managed region content for the given target
// titles, in order. Empty input renders an empty section so stale links are
// cleared rather than left behind.
func RenderLinkSection(titles []string) string {
	var b strings.Builder
	b.WriteString("## Related notes\n")
	for _, title := range titles {
		b.WriteString("\n- [[")
		b.WriteString(title)
		b.WriteString("]]")
	}
	if len(titles) > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

// noteTitle derives a display title from a vault path.
func noteTitle(location string) string {
	base := path.Base(location)
	return strings.TrimSuffix(base, path.Ext(base))
}

// difference returns the elements of a that are not in b.
func difference(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, v := range b {
		inB[v] = true
	}
	var out []string
	for _, v := range a {
		if !inB[v] {
			out = append(out, v)
		}
	}
	return out
}
