package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings_Valid(t *testing.T) {
	settings := DefaultSettings()

	require.NoError(t, settings.Validate())
	assert.Equal(t, DefaultSimilarityThreshold, settings.SimilarityThreshold)
	assert.Equal(t, DefaultMaxLinks, settings.MaxLinks)
}

func TestSettings_Validate_Ranges(t *testing.T) {
	settings := DefaultSettings()
	settings.SimilarityThreshold = 1.5
	assert.ErrorIs(t, settings.Validate(), ErrInvalidInput)

	settings = DefaultSettings()
	settings.MinAIScore = -1
	assert.ErrorIs(t, settings.Validate(), ErrInvalidInput)

	settings = DefaultSettings()
	settings.ScoringBatchSize = 0
	assert.ErrorIs(t, settings.Validate(), ErrInvalidInput)
}
