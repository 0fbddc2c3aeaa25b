package domain

import (
	"strings"
	"time"
)

// PairKey is the canonical key for an unordered document pair.
// It is always "lowerID|higherID" (lexicographic), so (A,B) and (B,A)
// produce the same key. PairKeyFor is the only constructor; building keys
// any other way risks duplicate inverse entries.
type PairKey string

// pairKeySeparator joins the two ids. UUIDs never contain it.
const pairKeySeparator = "|"

// PairKeyFor builds the canonical key for two document ids.
func PairKeyFor(id1, id2 string) PairKey {
	if id1 > id2 {
		id1, id2 = id2, id1
	}
	return PairKey(id1 + pairKeySeparator + id2)
}

// IDs returns the two participant ids in canonical order.
func (k PairKey) IDs() (string, string) {
	i := strings.Index(string(k), pairKeySeparator)
	if i < 0 {
		return string(k), ""
	}
	return string(k[:i]), string(k[i+1:])
}

// Contains returns true if id is one of the pair's participants.
func (k PairKey) Contains(id string) bool {
	a, b := k.IDs()
	return a == id || b == id
}

// Other returns the participant that is not id, or "" when id is not
// part of the pair.
func (k PairKey) Other(id string) string {
	a, b := k.IDs()
	switch id {
	case a:
		return b
	case b:
		return a
	default:
		return ""
	}
}

// PairScore holds the scores for one unordered document pair.
// A pair appears at most once in the master index.
type PairScore struct {
	// ID1 and ID2 are the participants in canonical (lexicographic) order.
	ID1 string `json:"id1"`
	ID2 string `json:"id2"`

	// SimilarityScore is the embedding-space cosine similarity (0-1).
	SimilarityScore float64 `json:"similarityScore"`

	// AIScore is the LLM-assigned relevance score (0-10).
	AIScore float64 `json:"aiScore"`

	// LastScoredAt is when the LLM last scored this pair.
	LastScoredAt time.Time `json:"lastScoredAt"`
}

// NewPairScore builds a PairScore with participants in canonical order.
func NewPairScore(id1, id2 string, similarity, aiScore float64, scoredAt time.Time) PairScore {
	if id1 > id2 {
		id1, id2 = id2, id1
	}
	return PairScore{
		ID1:             id1,
		ID2:             id2,
		SimilarityScore: similarity,
		AIScore:         aiScore,
		LastScoredAt:    scoredAt,
	}
}

// Key returns the canonical pair key.
func (p PairScore) Key() PairKey {
	return PairKeyFor(p.ID1, p.ID2)
}

// Other returns the participant that is not id.
func (p PairScore) Other(id string) string {
	return p.Key().Other(id)
}

// Qualifies returns true when both scores meet the configured minimums.
func (p PairScore) Qualifies(minSimilarity, minAIScore float64) bool {
	return p.SimilarityScore >= minSimilarity && p.AIScore >= minAIScore
}

// PairCandidate is a pair proposed for LLM scoring, with content excerpts.
type PairCandidate struct {
	// ID1 and ID2 are the participant document ids.
	ID1 string
	ID2 string

	// Similarity is the embedding-space similarity that qualified the pair.
	Similarity float64

	// Excerpt1 and Excerpt2 are content excerpts sent to the LLM.
	Excerpt1 string
	Excerpt2 string

	// Title1 and Title2 are display names for prompts and failure reports.
	Title1 string
	Title2 string
}
