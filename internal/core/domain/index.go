package domain

import "time"

// SchemaVersion is the current persisted master index schema version.
// Bumped on incompatible layout changes; loaders migrate forward.
const SchemaVersion = 2

// LinkLedger records, per source document id, the ordered neighbour ids the
// engine last wrote into that document's managed region. It is the engine's
// own memory of "what I last wrote", independent of anything the user wrote
// by hand outside the managed region.
type LinkLedger map[string][]string

// Targets returns the recorded target list for id, nil if none.
func (l LinkLedger) Targets(id string) []string {
	return l[id]
}

// SetTargets overwrites the ledger entry for id with exactly targets.
// An empty target list removes the entry.
func (l LinkLedger) SetTargets(id string, targets []string) {
	if len(targets) == 0 {
		delete(l, id)
		return
	}
	l[id] = targets
}

// SourcesLinkingTo returns every source id whose recorded targets include
// target. Used for reverse-neighbour discovery when computing affected sets.
func (l LinkLedger) SourcesLinkingTo(target string) []string {
	var sources []string
	for source, targets := range l {
		for _, t := range targets {
			if t == target {
				sources = append(sources, source)
				break
			}
		}
	}
	return sources
}

// RemoveDocument deletes id's own entry and strips id from every other
// entry's target list.
func (l LinkLedger) RemoveDocument(id string) {
	delete(l, id)
	for source, targets := range l {
		kept := targets[:0]
		for _, t := range targets {
			if t != id {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(l, source)
		} else {
			l[source] = kept
		}
	}
}

// IndexStats summarises the master index for display.
type IndexStats struct {
	// DocumentCount is the number of tracked documents.
	DocumentCount int `json:"documentCount"`

	// PairCount is the number of scored pairs.
	PairCount int `json:"pairCount"`

	// LinkCount is the total number of ledger-recorded links.
	LinkCount int `json:"linkCount"`

	// OrphanCount is the number of records whose location no longer exists
	// in the vault, as of the last orphan detection pass.
	OrphanCount int `json:"orphanCount"`
}

// MasterIndex is the single source of truth: document records, pair scores
// and the link ledger. It is owned exclusively by the index service; other
// components read and mutate it only through that service.
type MasterIndex struct {
	// Version is the persisted schema version.
	Version int `json:"version"`

	// UpdatedAt is when the index was last saved.
	UpdatedAt time.Time `json:"updatedAt"`

	// Documents maps document id to its record.
	Documents map[string]*DocumentRecord `json:"documents"`

	// Pairs maps canonical pair key to the pair's scores.
	Pairs map[PairKey]PairScore `json:"pairs"`

	// Ledger is the machine-written link memory.
	Ledger LinkLedger `json:"ledger"`

	// Stats are aggregate counts, recomputed on save.
	Stats IndexStats `json:"stats"`
}

// NewMasterIndex returns an empty index at the current schema version.
func NewMasterIndex() *MasterIndex {
	return &MasterIndex{
		Version:   SchemaVersion,
		Documents: make(map[string]*DocumentRecord),
		Pairs:     make(map[PairKey]PairScore),
		Ledger:    make(LinkLedger),
	}
}

// PutScore upserts a pair score under its canonical key.
func (m *MasterIndex) PutScore(score PairScore) {
	m.Pairs[score.Key()] = score
}

// ScoresTouching returns every pair score with id as a participant.
func (m *MasterIndex) ScoresTouching(id string) []PairScore {
	var scores []PairScore
	for key, score := range m.Pairs {
		if key.Contains(id) {
			scores = append(scores, score)
		}
	}
	return scores
}

// InvalidateScores removes every pair score touching id. Called when id is
// re-embedded: old scores were computed against stale content.
func (m *MasterIndex) InvalidateScores(id string) int {
	removed := 0
	for key := range m.Pairs {
		if key.Contains(id) {
			delete(m.Pairs, key)
			removed++
		}
	}
	return removed
}

// RemoveDocument deletes id's record, every pair score touching it, and all
// its ledger entries (as source and as any other document's target).
func (m *MasterIndex) RemoveDocument(id string) {
	delete(m.Documents, id)
	m.InvalidateScores(id)
	m.Ledger.RemoveDocument(id)
}

// DocumentByLocation finds the record at a vault path, nil if untracked.
func (m *MasterIndex) DocumentByLocation(location string) *DocumentRecord {
	for _, record := range m.Documents {
		if record.Location == location {
			return record
		}
	}
	return nil
}

// RecomputeStats refreshes aggregate counts. OrphanCount is preserved; it is
// only recomputed by an explicit orphan detection pass.
func (m *MasterIndex) RecomputeStats() {
	links := 0
	for _, targets := range m.Ledger {
		links += len(targets)
	}
	m.Stats.DocumentCount = len(m.Documents)
	m.Stats.PairCount = len(m.Pairs)
	m.Stats.LinkCount = links
}
