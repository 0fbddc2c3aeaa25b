package domain

import (
	"fmt"
	"time"
)

// Default threshold and tuning values.
const (
	DefaultSimilarityThreshold = 0.85
	DefaultMinAIScore          = 5.0
	DefaultMaxLinks            = 5
	DefaultScoringBatchSize    = 10
	DefaultExcerptLength       = 1500
	DefaultMaxTags             = 5
	DefaultFlushDebounce       = 5 * time.Second
	DefaultFailureRetention    = 30 * 24 * time.Hour
)

// Settings holds the engine's tuning knobs, loaded from the config store.
type Settings struct {
	// SimilarityThreshold is the minimum cosine similarity for a pair to be
	// sent to the LLM for scoring (0-1).
	SimilarityThreshold float64

	// MinAIScore is the minimum LLM relevance score (0-10) for a pair to
	// produce a link.
	MinAIScore float64

	// MaxLinks caps the number of managed links written per note.
	MaxLinks int

	// ScoringBatchSize is how many candidate pairs are sent to the LLM per
	// request.
	ScoringBatchSize int

	// ExcerptLength is how many characters of note content are included per
	// side of a scoring prompt.
	ExcerptLength int

	// MaxTags caps machine-generated tags per note.
	MaxTags int

	// GenerateTags enables the tag generation stage.
	GenerateTags bool

	// FlushDebounce is how long buffered per-document index updates may sit
	// before a save is forced.
	FlushDebounce time.Duration

	// FailureRetention is how long resolved failure records are kept.
	FailureRetention time.Duration
}

// DefaultSettings returns settings with all defaults applied.
func DefaultSettings() Settings {
	return Settings{
		SimilarityThreshold: DefaultSimilarityThreshold,
		MinAIScore:          DefaultMinAIScore,
		MaxLinks:            DefaultMaxLinks,
		ScoringBatchSize:    DefaultScoringBatchSize,
		ExcerptLength:       DefaultExcerptLength,
		MaxTags:             DefaultMaxTags,
		FlushDebounce:       DefaultFlushDebounce,
		FailureRetention:    DefaultFailureRetention,
	}
}

// Validate checks threshold ranges.
func (s Settings) Validate() error {
	if s.SimilarityThreshold < 0 || s.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity threshold %v outside [0,1]", ErrInvalidInput, s.SimilarityThreshold)
	}
	if s.MinAIScore < 0 || s.MinAIScore > 10 {
		return fmt.Errorf("%w: minimum AI score %v outside [0,10]", ErrInvalidInput, s.MinAIScore)
	}
	if s.MaxLinks < 0 {
		return fmt.Errorf("%w: max links %d negative", ErrInvalidInput, s.MaxLinks)
	}
	if s.ScoringBatchSize <= 0 {
		return fmt.Errorf("%w: scoring batch size %d must be positive", ErrInvalidInput, s.ScoringBatchSize)
	}
	return nil
}
