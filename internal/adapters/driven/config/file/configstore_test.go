package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("vault.path", "/home/user/vault"))
	assert.Equal(t, "/home/user/vault", store.GetString("vault.path"))

	_, ok := store.Get("missing.key")
	assert.False(t, ok)
	assert.Empty(t, store.GetString("missing.key"))
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("engine.max_links", int64(5)))
	require.NoError(t, store.Set("engine.similarity_threshold", 0.75))
	require.NoError(t, store.Set("engine.generate_tags", true))

	assert.Equal(t, 5, store.GetInt("engine.max_links"))
	assert.Equal(t, 0.75, store.GetFloat("engine.similarity_threshold"))
	assert.True(t, store.GetBool("engine.generate_tags"))

	// Wrong types fall back to zero values
	assert.Zero(t, store.GetInt("engine.similarity_threshold"))
	assert.Empty(t, store.GetString("engine.max_links"))
	assert.False(t, store.GetBool("vault.path"))
}

func TestConfigStore_GetFloat_WholeNumbers(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	// TOML round-trips whole numbers as integers
	require.NoError(t, store.Set("engine.min_ai_score", int64(6)))
	assert.Equal(t, 6.0, store.GetFloat("engine.min_ai_score"))
}

func TestConfigStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("openai.api_key", "sk-test"))
	require.NoError(t, store.Set("engine.max_links", int64(7)))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "sk-test", reopened.GetString("openai.api_key"))
	assert.Equal(t, 7, reopened.GetInt("engine.max_links"))
}

func TestConfigStore_FlattensNestedTables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[vault]\npath = \"/notes\"\n\n[engine]\nmax_links = 3\nsimilarity_threshold = 0.8\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "/notes", store.GetString("vault.path"))
	assert.Equal(t, 3, store.GetInt("engine.max_links"))
	assert.Equal(t, 0.8, store.GetFloat("engine.similarity_threshold"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("openai.api_key", "sk-secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
