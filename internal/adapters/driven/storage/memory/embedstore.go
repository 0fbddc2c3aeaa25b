package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
	"github.com/custodia-labs/notelink-cli/internal/core/ports/driven"
)

// Ensure EmbeddingStore implements the interface.
var _ driven.EmbeddingStore = (*EmbeddingStore)(nil)

// EmbeddingStore is an in-memory implementation of driven.EmbeddingStore.
type EmbeddingStore struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewEmbeddingStore creates a new in-memory embedding store.
func NewEmbeddingStore() *EmbeddingStore {
	return &EmbeddingStore{vectors: make(map[string][]float32)}
}

// SaveVector stores the vector for a document id.
func (s *EmbeddingStore) SaveVector(_ context.Context, id string, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]float32, len(vector))
	copy(copied, vector)
	s.vectors[id] = copied
	return nil
}

// LoadVector retrieves the vector for a document id.
func (s *EmbeddingStore) LoadVector(_ context.Context, id string) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vector, ok := s.vectors[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := make([]float32, len(vector))
	copy(copied, vector)
	return copied, nil
}

// DeleteVector removes the vector for a document id.
func (s *EmbeddingStore) DeleteVector(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vectors, id)
	return nil
}

// ListIDs returns the ids of all stored vectors.
func (s *EmbeddingStore) ListIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.vectors))
	for id := range s.vectors {
		ids = append(ids, id)
	}
	return ids, nil
}
