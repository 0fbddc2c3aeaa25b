package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
)

func TestVaultStore_ListSorted(t *testing.T) {
	store := NewVaultStore()
	store.AddNote("b.md", "b")
	store.AddNote("a.md", "a")

	refs, err := store.List(context.Background())

	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "a.md", refs[0].Path)
	assert.Equal(t, "a", refs[0].Title)
	assert.Equal(t, "b.md", refs[1].Path)
}

func TestVaultStore_EnsureID_Stable(t *testing.T) {
	ctx := context.Background()
	store := NewVaultStore()
	store.AddNote("a.md", "content")
	ref := domain.NoteRef{Path: "a.md"}

	id, err := store.EnsureID(ctx, ref)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	again, err := store.EnsureID(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	_, err = store.EnsureID(ctx, domain.NoteRef{Path: "missing.md"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVaultStore_ManagedRegionSeparateFromMain(t *testing.T) {
	ctx := context.Background()
	store := NewVaultStore()
	store.AddNote("a.md", "main content")
	ref := domain.NoteRef{Path: "a.md"}

	require.NoError(t, store.WriteManagedRegion(ctx, ref, "## Related notes\n"))

	note, err := store.Read(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "main content", note.MainContent)
	assert.Equal(t, "## Related notes\n", note.ManagedContent)
	assert.True(t, note.HasBoundary)
}

func TestVaultStore_Watch_DeliversEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewVaultStore()

	events, err := store.Watch(ctx)
	require.NoError(t, err)

	store.Emit(domain.VaultEvent{Type: domain.VaultEventDeleted, Path: "a.md"})

	select {
	case event := <-events:
		assert.Equal(t, domain.VaultEventDeleted, event.Type)
		assert.Equal(t, "a.md", event.Path)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel closed on cancellation")
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}
