package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
)

func TestFingerprint_Deterministic(t *testing.T) {
	assert.Equal(t, Fingerprint("content"), Fingerprint("content"))
	assert.NotEqual(t, Fingerprint("content"), Fingerprint("other"))
}

func TestChangeDetector_NeedsReprocessing(t *testing.T) {
	detector := NewChangeDetector()
	record := &domain.DocumentRecord{ID: "a", ContentFingerprint: Fingerprint("stable")}
	none := map[string]bool{}

	// Unchanged note with no prior failure is skipped
	assert.False(t, detector.NeedsReprocessing(record, Fingerprint("stable"), false, none))

	// Force overrides everything
	assert.True(t, detector.NeedsReprocessing(record, Fingerprint("stable"), true, none))

	// Untracked note
	assert.True(t, detector.NeedsReprocessing(nil, Fingerprint("stable"), false, none))

	// Content changed
	assert.True(t, detector.NeedsReprocessing(record, Fingerprint("edited"), false, none))
}

func TestChangeDetector_NeedsReprocessing_SmartRetry(t *testing.T) {
	detector := NewChangeDetector()
	record := &domain.DocumentRecord{ID: "a", ContentFingerprint: Fingerprint("stable")}

	// A prior embedding failure forces reprocessing even though the
	// fingerprint is unchanged.
	failed := map[string]bool{"a": true}
	assert.True(t, detector.NeedsReprocessing(record, Fingerprint("stable"), false, failed))

	// Failures for other documents do not
	failed = map[string]bool{"b": true}
	assert.False(t, detector.NeedsReprocessing(record, Fingerprint("stable"), false, failed))
}
