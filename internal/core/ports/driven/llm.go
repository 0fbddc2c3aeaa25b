package driven

import (
	"context"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
)

// PairScoreResult is one scored pair from the LLM.
type PairScoreResult struct {
	// ID1 and ID2 identify the pair as submitted.
	ID1 string
	ID2 string

	// Score is the LLM relevance score, clamped to 0-10.
	Score float64
}

// LLMService scores candidate note pairs and suggests topic tags.
// This is an optional service - when nil, scoring and tagging are disabled.
//
// Failures are surfaced as *domain.ProviderError so the failure log can
// record the classification and status code.
type LLMService interface {
	// ScorePairs asks the model to rate the relevance of each candidate
	// pair on a 0-10 scale. Results come back in submission order.
	ScorePairs(ctx context.Context, candidates []domain.PairCandidate) ([]PairScoreResult, error)

	// SuggestTags proposes up to maxTags topic tags for note content.
	SuggestTags(ctx context.Context, content string, maxTags int) ([]string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
