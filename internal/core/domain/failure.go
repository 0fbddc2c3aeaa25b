package domain

import "time"

// FailureKind names the pipeline operation that failed.
type FailureKind string

// Failure kinds.
const (
	FailureKindEmbedding FailureKind = "embedding"
	FailureKindScoring   FailureKind = "scoring"
	FailureKindTagging   FailureKind = "tagging"
)

// IsValid returns true if the failure kind is recognised.
func (k FailureKind) IsValid() bool {
	switch k {
	case FailureKindEmbedding, FailureKindScoring, FailureKindTagging:
		return true
	default:
		return false
	}
}

// BatchItem identifies one item within a failed batch.
type BatchItem struct {
	// DocumentID is the affected document.
	DocumentID string

	// Position is the item's index within the batch.
	Position int

	// Label is a display name for reports (usually the note title).
	Label string
}

// FailureRecord is a durable record of one failed batch operation. The
// failure log keeps it until the same items succeed (resolved) and old
// enough resolved records are pruned. Unresolved records are never pruned:
// silently dropping one would permanently hide a retry opportunity.
type FailureRecord struct {
	// ID is a generated record identifier.
	ID string

	// OccurredAt is when the failure happened.
	OccurredAt time.Time

	// Kind is the failed operation.
	Kind FailureKind

	// Items are the batch members that were in flight.
	Items []BatchItem

	// Message is the error detail.
	Message string

	// ErrorKind classifies the failure.
	ErrorKind ErrorKind

	// StatusCode is the provider HTTP status, 0 if not applicable.
	StatusCode int

	// Resolved is set once the same items have succeeded, or when the
	// record is explicitly cleared.
	Resolved bool
}

// ItemIDs returns the document ids of all batch items.
func (r FailureRecord) ItemIDs() []string {
	ids := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		ids = append(ids, item.DocumentID)
	}
	return ids
}
