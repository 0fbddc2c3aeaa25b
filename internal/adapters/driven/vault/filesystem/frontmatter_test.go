package filesystem

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNote_Regions(t *testing.T) {
	raw := "---\n" +
		"notelink-id: abc-123\n" +
		"title: My Note\n" +
		"---\n" +
		"Main content here.\n" +
		"\n" +
		BoundaryMarker + "\n" +
		"## Related notes\n\n- [[Other]]\n"

	parsed, err := parseNote(raw)

	require.NoError(t, err)
	assert.Equal(t, "abc-123", parsed.id)
	assert.True(t, parsed.hasFrontMatter)
	assert.True(t, parsed.hasBoundary)
	assert.Equal(t, "Main content here.", parsed.main)
	assert.Equal(t, "## Related notes\n\n- [[Other]]\n", parsed.managed)
}

func TestParseNote_PlainNote(t *testing.T) {
	parsed, err := parseNote("Just some text.\n")

	require.NoError(t, err)
	assert.Empty(t, parsed.id)
	assert.False(t, parsed.hasFrontMatter)
	assert.False(t, parsed.hasBoundary)
	assert.Equal(t, "Just some text.", parsed.main)
	assert.Empty(t, parsed.managed)
}

func TestParseNote_InvalidYAML(t *testing.T) {
	_, err := parseNote("---\nkey: [unclosed\n---\nbody\n")

	assert.Error(t, err)
}

func TestSplitFrontMatter(t *testing.T) {
	fm, body, ok := splitFrontMatter("---\nkey: value\n---\nbody text\n")
	assert.True(t, ok)
	assert.Equal(t, "key: value", fm)
	assert.Equal(t, "body text\n", body)

	// Fence must be the very first line
	_, body, ok = splitFrontMatter("\n---\nkey: value\n---\nbody\n")
	assert.False(t, ok)
	assert.Equal(t, "\n---\nkey: value\n---\nbody\n", body)

	// Unclosed block is treated as all body
	_, body, ok = splitFrontMatter("---\nkey: value\nbody\n")
	assert.False(t, ok)
	assert.Equal(t, "---\nkey: value\nbody\n", body)

	// A horizontal rule mid-document does not open a block
	_, _, ok = splitFrontMatter("text\n---\nmore text\n")
	assert.False(t, ok)
}

func TestSplitManaged_TrimsTrailingNewlines(t *testing.T) {
	// Appending a boundary marker must not change the main region.
	before, _, _ := splitManaged("content\n")
	after, _, _ := splitManaged("content\n\n" + BoundaryMarker + "\nlinks\n")

	assert.Equal(t, before, after)
	assert.Equal(t, "content", before)
}

func TestEnsureNoteID_ExistingIDUnchanged(t *testing.T) {
	raw := "---\nnotelink-id: keep-me\n---\nbody\n"

	id, updated, changed, err := ensureNoteID(raw)

	require.NoError(t, err)
	assert.Equal(t, "keep-me", id)
	assert.False(t, changed)
	assert.Equal(t, raw, updated)
}

func TestEnsureNoteID_InsertsIntoFrontMatter(t *testing.T) {
	raw := "---\ntitle: My Note\naliases:\n  - note\n---\nbody\n"

	id, updated, changed, err := ensureNoteID(raw)

	require.NoError(t, err)
	assert.True(t, changed)
	_, parseErr := uuid.Parse(id)
	assert.NoError(t, parseErr)

	// User formatting is preserved verbatim; only the id line is new
	assert.Equal(t, "---\nnotelink-id: "+id+"\ntitle: My Note\naliases:\n  - note\n---\nbody\n", updated)

	// Round trip
	parsed, err := parseNote(updated)
	require.NoError(t, err)
	assert.Equal(t, id, parsed.id)
	assert.Equal(t, "body", parsed.main)
}

func TestEnsureNoteID_PrependsBlockWhenNoFrontMatter(t *testing.T) {
	id, updated, changed, err := ensureNoteID("plain body\n")

	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "---\nnotelink-id: "+id+"\n---\nplain body\n", updated)

	parsed, err := parseNote(updated)
	require.NoError(t, err)
	assert.Equal(t, "plain body", parsed.main, "main content unchanged by id assignment")
}

func TestReplaceManagedRegion_AppendsMarker(t *testing.T) {
	updated := replaceManagedRegion("user text\n", "## Related notes\n\n- [[A]]\n")

	assert.Equal(t, "user text\n\n"+BoundaryMarker+"\n## Related notes\n\n- [[A]]\n", updated)

	// The main region is untouched
	parsed, err := parseNote(updated)
	require.NoError(t, err)
	assert.Equal(t, "user text", parsed.main)
	assert.Equal(t, "## Related notes\n\n- [[A]]\n", parsed.managed)
}

func TestReplaceManagedRegion_OverwritesExisting(t *testing.T) {
	raw := "user text\n\n" + BoundaryMarker + "\n## Related notes\n\n- [[Old]]\n"

	updated := replaceManagedRegion(raw, "## Related notes\n\n- [[New]]\n")

	assert.Equal(t, "user text\n\n"+BoundaryMarker+"\n## Related notes\n\n- [[New]]\n", updated)
	assert.NotContains(t, updated, "Old")
}

func TestReplaceManagedRegion_Idempotent(t *testing.T) {
	content := "## Related notes\n\n- [[A]]\n"
	once := replaceManagedRegion("body\n", content)

	assert.Equal(t, once, replaceManagedRegion(once, content))
}

func TestSetFrontMatterTags_ReplacesTagsBlock(t *testing.T) {
	raw := "---\ntitle: Note\ntags:\n  - old\n  - stale\ndate: 2024-01-01\n---\nbody\n"

	updated, err := setFrontMatterTags(raw, []string{"fresh", "new"})

	require.NoError(t, err)
	assert.Equal(t, "---\ntitle: Note\ndate: 2024-01-01\ntags:\n  - fresh\n  - new\n---\nbody\n", updated)
}

func TestSetFrontMatterTags_AddsBlockWhenMissing(t *testing.T) {
	updated, err := setFrontMatterTags("---\ntitle: Note\n---\nbody\n", []string{"topic"})

	require.NoError(t, err)
	assert.Equal(t, "---\ntitle: Note\ntags:\n  - topic\n---\nbody\n", updated)
}

func TestSetFrontMatterTags_NoFrontMatter(t *testing.T) {
	updated, err := setFrontMatterTags("body\n", []string{"topic"})

	require.NoError(t, err)
	assert.Equal(t, "---\ntags:\n  - topic\n---\nbody\n", updated)
}

func TestSetFrontMatterTags_EmptyTags(t *testing.T) {
	updated, err := setFrontMatterTags("---\ntags:\n  - old\n---\nbody\n", nil)

	require.NoError(t, err)
	assert.Equal(t, "---\ntags: []\n---\nbody\n", updated)
}

func TestRemoveTopLevelKey(t *testing.T) {
	fm := "title: Note\ntags:\n  - a\n  - b\ndate: 2024-01-01"

	assert.Equal(t, "title: Note\ndate: 2024-01-01\n", removeTopLevelKey(fm, "tags"))

	// Removing the only key empties the block
	assert.Empty(t, removeTopLevelKey("tags:\n  - a", "tags"))

	// Similar prefixes are not confused
	assert.Equal(t, "tagset: x\n", removeTopLevelKey("tagset: x", "tags"))
}
