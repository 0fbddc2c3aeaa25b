package file

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
	"github.com/custodia-labs/notelink-cli/internal/core/ports/driven"
)

// Ensure EmbeddingStore implements the interface.
var _ driven.EmbeddingStore = (*EmbeddingStore)(nil)

// vectorExt is the file extension for vector shards.
const vectorExt = ".vec"

// EmbeddingStore persists one little-endian float32 vector file per
// document id: a uint32 element count followed by the elements.
type EmbeddingStore struct {
	dir string
}

// NewEmbeddingStore creates a vector store under dataDir/vectors.
// If dataDir is empty, defaults to ~/.notelink/data.
func NewEmbeddingStore(dataDir string) (*EmbeddingStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".notelink", "data")
	}
	dir := filepath.Join(dataDir, "vectors")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating vectors directory: %w", err)
	}
	return &EmbeddingStore{dir: dir}, nil
}

func (s *EmbeddingStore) vectorPath(id string) string {
	return filepath.Join(s.dir, id+vectorExt)
}

// SaveVector stores the vector for a document id, replacing atomically.
func (s *EmbeddingStore) SaveVector(_ context.Context, id string, vector []float32) error {
	buf := make([]byte, 4+4*len(vector))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(vector)))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[4+4*i:], math.Float32bits(v))
	}

	tmp, err := os.CreateTemp(s.dir, id+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp vector file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("writing vector %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing vector %s: %w", id, err)
	}
	if err := os.Rename(tmpName, s.vectorPath(id)); err != nil {
		return fmt.Errorf("replacing vector %s: %w", id, err)
	}
	return nil
}

// LoadVector retrieves the vector for a document id.
func (s *EmbeddingStore) LoadVector(_ context.Context, id string) ([]float32, error) {
	data, err := os.ReadFile(s.vectorPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("vector %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading vector %s: %w", id, err)
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("vector %s: truncated file", id)
	}

	count := binary.LittleEndian.Uint32(data[0:4])
	if len(data) != int(4+4*count) {
		return nil, fmt.Errorf("vector %s: length mismatch (header %d, payload %d bytes)", id, count, len(data)-4)
	}

	vector := make([]float32, count)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4+4*i:]))
	}
	return vector, nil
}

// DeleteVector removes the vector for a document id. Missing is not an error.
func (s *EmbeddingStore) DeleteVector(_ context.Context, id string) error {
	err := os.Remove(s.vectorPath(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting vector %s: %w", id, err)
	}
	return nil
}

// ListIDs returns the ids of all stored vectors.
func (s *EmbeddingStore) ListIDs(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing vectors: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, vectorExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, vectorExt))
	}
	return ids, nil
}
