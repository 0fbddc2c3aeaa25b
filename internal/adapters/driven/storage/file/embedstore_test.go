package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
)

func newEmbedStore(t *testing.T) (*EmbeddingStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewEmbeddingStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestEmbeddingStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store, _ := newEmbedStore(t)
	vector := []float32{0.5, -1.25, 3.0}

	require.NoError(t, store.SaveVector(ctx, "doc-1", vector))

	loaded, err := store.LoadVector(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, vector, loaded)

	// Overwrite replaces
	require.NoError(t, store.SaveVector(ctx, "doc-1", []float32{9}))
	loaded, err = store.LoadVector(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []float32{9}, loaded)
}

func TestEmbeddingStore_Load_Missing(t *testing.T) {
	store, _ := newEmbedStore(t)

	_, err := store.LoadVector(context.Background(), "absent")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEmbeddingStore_Load_Truncated(t *testing.T) {
	store, dir := newEmbedStore(t)
	path := filepath.Join(dir, "vectors", "bad"+vectorExt)
	require.NoError(t, os.WriteFile(path, []byte{1, 0, 0, 0, 42}, 0600))

	_, err := store.LoadVector(context.Background(), "bad")

	assert.Error(t, err)
}

func TestEmbeddingStore_Delete(t *testing.T) {
	ctx := context.Background()
	store, _ := newEmbedStore(t)
	require.NoError(t, store.SaveVector(ctx, "doc-1", []float32{1}))

	require.NoError(t, store.DeleteVector(ctx, "doc-1"))
	_, err := store.LoadVector(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting an absent vector is a no-op
	assert.NoError(t, store.DeleteVector(ctx, "doc-1"))
}

func TestEmbeddingStore_ListIDs(t *testing.T) {
	ctx := context.Background()
	store, dir := newEmbedStore(t)
	require.NoError(t, store.SaveVector(ctx, "a", []float32{1}))
	require.NoError(t, store.SaveVector(ctx, "b", []float32{2}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vectors", "noise.txt"), []byte("x"), 0600))

	ids, err := store.ListIDs(ctx)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}
