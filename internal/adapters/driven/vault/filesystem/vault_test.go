package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
)

func newTestVault(t *testing.T) (*VaultStore, string) {
	t.Helper()
	root := t.TempDir()
	store, err := NewVaultStore(root)
	require.NoError(t, err)
	return store, root
}

func writeNote(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readNote(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestNewVaultStore_Validation(t *testing.T) {
	_, err := NewVaultStore(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.md")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = NewVaultStore(file)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVaultStore_List(t *testing.T) {
	store, root := newTestVault(t)
	writeNote(t, root, "b.md", "b")
	writeNote(t, root, "a.md", "a")
	writeNote(t, root, "topics/deep/c.md", "c")
	writeNote(t, root, "readme.txt", "not a note")
	writeNote(t, root, ".obsidian/workspace.md", "hidden dir")
	writeNote(t, root, "_templates/daily.md", "underscore dir")
	writeNote(t, root, ".hidden.md", "hidden file")

	refs, err := store.List(context.Background())

	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.Equal(t, "a.md", refs[0].Path)
	assert.Equal(t, "b.md", refs[1].Path)
	assert.Equal(t, "topics/deep/c.md", refs[2].Path)
	assert.Equal(t, "c", refs[2].Title)
}

func TestVaultStore_Read(t *testing.T) {
	store, root := newTestVault(t)
	writeNote(t, root, "note.md",
		"---\nnotelink-id: id-1\n---\ncontent\n\n"+BoundaryMarker+"\n## Related notes\n")

	note, err := store.Read(context.Background(), domain.NoteRef{Path: "note.md", Title: "note"})

	require.NoError(t, err)
	assert.Equal(t, "id-1", note.ID)
	assert.Equal(t, "content", note.MainContent)
	assert.Equal(t, "## Related notes\n", note.ManagedContent)
	assert.True(t, note.HasFrontMatter)
	assert.True(t, note.HasBoundary)
}

func TestVaultStore_Read_Missing(t *testing.T) {
	store, _ := newTestVault(t)

	_, err := store.Read(context.Background(), domain.NoteRef{Path: "nope.md"})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVaultStore_EnsureID_PersistsAssignment(t *testing.T) {
	ctx := context.Background()
	store, root := newTestVault(t)
	writeNote(t, root, "note.md", "just content\n")

	id, err := store.EnsureID(ctx, domain.NoteRef{Path: "note.md"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// The id is durable: a second call returns the same one
	again, err := store.EnsureID(ctx, domain.NoteRef{Path: "note.md"})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	assert.Contains(t, readNote(t, root, "note.md"), "notelink-id: "+id)
}

func TestVaultStore_WriteManagedRegion_PreservesUserContent(t *testing.T) {
	ctx := context.Background()
	store, root := newTestVault(t)
	userContent := "---\ntitle: Note\n---\n# Heading\n\nuser prose\n"
	writeNote(t, root, "note.md", userContent)

	err := store.WriteManagedRegion(ctx, domain.NoteRef{Path: "note.md"},
		"## Related notes\n\n- [[Other]]\n")
	require.NoError(t, err)

	raw := readNote(t, root, "note.md")
	assert.Contains(t, raw, "# Heading\n\nuser prose")
	assert.Contains(t, raw, BoundaryMarker+"\n## Related notes\n\n- [[Other]]\n")

	// Overwrite replaces, never appends
	err = store.WriteManagedRegion(ctx, domain.NoteRef{Path: "note.md"},
		"## Related notes\n\n- [[Replacement]]\n")
	require.NoError(t, err)

	raw = readNote(t, root, "note.md")
	assert.NotContains(t, raw, "Other")
	assert.Contains(t, raw, "- [[Replacement]]")
}

func TestVaultStore_WriteTags(t *testing.T) {
	ctx := context.Background()
	store, root := newTestVault(t)
	writeNote(t, root, "note.md", "---\ntitle: Note\n---\nbody\n")

	err := store.WriteTags(ctx, domain.NoteRef{Path: "note.md"}, []string{"go", "testing"})
	require.NoError(t, err)

	assert.Equal(t, "---\ntitle: Note\ntags:\n  - go\n  - testing\n---\nbody\n",
		readNote(t, root, "note.md"))
}

func TestVaultStore_Exists(t *testing.T) {
	ctx := context.Background()
	store, root := newTestVault(t)
	writeNote(t, root, "note.md", "x")

	ok, err := store.Exists(ctx, "note.md")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(ctx, "missing.md")
	require.NoError(t, err)
	assert.False(t, ok)
}
