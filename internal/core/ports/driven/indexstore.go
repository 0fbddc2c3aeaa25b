package driven

import (
	"context"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
)

// LoadOptions controls master index loading.
type LoadOptions struct {
	// CreateIfMissing synthesises an empty index when no file exists,
	// treating the absence as success rather than ErrNotFound.
	CreateIfMissing bool
}

// IndexStore persists the master index. Saves must be atomic: after a crash
// at any point during Save, the durable file is either the previous complete
// state or the new complete state, never a mix.
type IndexStore interface {
	// Load reads the persisted index. Returns domain.ErrNotFound when no
	// index exists and CreateIfMissing is unset, and an error wrapping
	// domain.ErrIndexCorrupt when the file cannot be decoded.
	Load(ctx context.Context, opts LoadOptions) (*domain.MasterIndex, error)

	// Save atomically persists the index (write temp file, then rename).
	Save(ctx context.Context, index *domain.MasterIndex) error
}

// EmbeddingStore persists per-document embedding vectors, sharded so a
// single document's vector can be loaded or replaced without touching the
// rest of the index.
type EmbeddingStore interface {
	// SaveVector stores the vector for a document id.
	SaveVector(ctx context.Context, id string, vector []float32) error

	// LoadVector retrieves the vector for a document id.
	// Returns domain.ErrNotFound if absent.
	LoadVector(ctx context.Context, id string) ([]float32, error)

	// DeleteVector removes the vector for a document id. Deleting a missing
	// vector is not an error.
	DeleteVector(ctx context.Context, id string) error

	// ListIDs returns the ids of all stored vectors.
	ListIDs(ctx context.Context) ([]string, error)
}
