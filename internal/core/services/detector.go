package services

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
)

// Fingerprint hashes a note's main content region. Only the user-authored
// region participates: edits inside the managed region must never trigger
// reprocessing.
func Fingerprint(mainContent string) string {
	sum := sha256.Sum256([]byte(mainContent))
	return hex.EncodeToString(sum[:])
}

// ChangeDetector decides whether a note needs re-embedding.
type ChangeDetector struct{}

// NewChangeDetector creates a change detector.
func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{}
}

// NeedsReprocessing returns true when the note must be re-embedded:
// force mode, no prior record, a changed fingerprint, or a prior embedding
// failure for this note (smart forced retry - the failure, not the content,
// is the reason to retry).
func (d *ChangeDetector) NeedsReprocessing(
	record *domain.DocumentRecord,
	fingerprint string,
	force bool,
	failedEmbeddings map[string]bool,
) bool {
	if force {
		return true
	}
	if record == nil {
		return true
	}
	if fingerprint != record.ContentFingerprint {
		return true
	}
	return failedEmbeddings[record.ID]
}
