package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
	"github.com/custodia-labs/notelink-cli/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore is an in-memory implementation of driven.IndexStore.
// Saves keep a deep copy (via JSON round-trip) so callers cannot mutate the
// "persisted" state through shared pointers, mirroring real persistence.
type IndexStore struct {
	mu    sync.Mutex
	saved []byte

	// SaveErr, when set, is returned by Save. Lets tests exercise the
	// save-failure-is-fatal path.
	SaveErr error

	// SaveCount counts successful saves.
	SaveCount int
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{}
}

// Load returns the last saved index, or a fresh one per options.
func (s *IndexStore) Load(_ context.Context, opts driven.LoadOptions) (*domain.MasterIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		if opts.CreateIfMissing {
			return domain.NewMasterIndex(), nil
		}
		return nil, domain.ErrNotFound
	}
	var index domain.MasterIndex
	if err := json.Unmarshal(s.saved, &index); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
	}
	if index.Documents == nil {
		index.Documents = make(map[string]*domain.DocumentRecord)
	}
	if index.Pairs == nil {
		index.Pairs = make(map[domain.PairKey]domain.PairScore)
	}
	if index.Ledger == nil {
		index.Ledger = make(domain.LinkLedger)
	}
	return &index, nil
}

// Save stores a deep copy of the index.
func (s *IndexStore) Save(_ context.Context, index *domain.MasterIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	data, err := json.Marshal(index)
	if err != nil {
		return err
	}
	s.saved = data
	s.SaveCount++
	return nil
}
