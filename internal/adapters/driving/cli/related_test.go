package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
	"github.com/custodia-labs/notelink-cli/internal/core/ports/driving"
)

func TestRelatedCmd_Use(t *testing.T) {
	assert.Equal(t, "related <note-path>", relatedCmd.Use)
}

func TestRelatedCmd_ListsNeighbours(t *testing.T) {
	mock, _, buf := setupCommandTest(t)
	mock.related = []driving.RelatedNote{
		{Path: "topics/go.md", Title: "go", AIScore: 8.5, Similarity: 0.91},
		{Path: "topics/testing.md", Title: "testing", AIScore: 7.0, Similarity: 0.84},
	}

	err := execute(t, "related", "notes/a.md")

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Related to notes/a.md:")
	assert.Contains(t, buf.String(), "go")
	assert.Contains(t, buf.String(), "score 8.5")
}

func TestRelatedCmd_NoResults(t *testing.T) {
	_, _, buf := setupCommandTest(t)

	err := execute(t, "related", "notes/a.md")

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No related notes found.")
}

func TestRelatedCmd_UnknownNote(t *testing.T) {
	mock, _, _ := setupCommandTest(t)
	mock.relatedErr = domain.ErrNotFound

	err := execute(t, "related", "missing.md")

	assert.ErrorContains(t, err, "run 'notelink index' first")
}
