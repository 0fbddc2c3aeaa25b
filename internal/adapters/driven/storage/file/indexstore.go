package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
	"github.com/custodia-labs/notelink-cli/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// indexFileName is the master index file within the data directory.
const indexFileName = "index.json"

// IndexStore persists the master index as a single JSON file with atomic
// replace-on-save semantics.
type IndexStore struct {
	path string
}

// NewIndexStore creates an index store under dataDir.
// If dataDir is empty, defaults to ~/.notelink/data.
func NewIndexStore(dataDir string) (*IndexStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".notelink", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &IndexStore{path: filepath.Join(dataDir, indexFileName)}, nil
}

// Path returns the index file path.
func (s *IndexStore) Path() string {
	return s.path
}

// Load reads the persisted index. A missing file yields a fresh empty index
// when CreateIfMissing is set, domain.ErrNotFound otherwise. An unreadable
// or undecodable file wraps domain.ErrIndexCorrupt; the caller decides
// whether to abort or recreate.
func (s *IndexStore) Load(_ context.Context, opts driven.LoadOptions) (*domain.MasterIndex, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if opts.CreateIfMissing {
			return domain.NewMasterIndex(), nil
		}
		return nil, fmt.Errorf("index file %s: %w", s.path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrIndexCorrupt, s.path, err)
	}

	var index domain.MasterIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", domain.ErrIndexCorrupt, s.path, err)
	}

	// Older files may predate some maps; never hand out nil maps.
	if index.Documents == nil {
		index.Documents = make(map[string]*domain.DocumentRecord)
	}
	if index.Pairs == nil {
		index.Pairs = make(map[domain.PairKey]domain.PairScore)
	}
	if index.Ledger == nil {
		index.Ledger = make(domain.LinkLedger)
	}
	if index.Version < domain.SchemaVersion {
		index.Version = domain.SchemaVersion
	}
	return &index, nil
}

// Save atomically persists the index: the JSON is written to a temp file in
// the same directory, synced, then renamed over the target. After a crash
// at any point the durable file is either the old or the new complete
// state.
func (s *IndexStore) Save(_ context.Context, index *domain.MasterIndex) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), indexFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp index file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp index file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp index file: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("setting index file mode: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing index file: %w", err)
	}
	return nil
}
