package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPairKeyFor_CanonicalOrder(t *testing.T) {
	// Same key regardless of argument order
	assert.Equal(t, PairKeyFor("a", "b"), PairKeyFor("b", "a"))
	assert.Equal(t, PairKey("a|b"), PairKeyFor("b", "a"))
}

func TestPairKey_IDs(t *testing.T) {
	key := PairKeyFor("doc-b", "doc-a")

	id1, id2 := key.IDs()

	assert.Equal(t, "doc-a", id1)
	assert.Equal(t, "doc-b", id2)
}

func TestPairKey_Contains(t *testing.T) {
	key := PairKeyFor("a", "b")

	assert.True(t, key.Contains("a"))
	assert.True(t, key.Contains("b"))
	assert.False(t, key.Contains("c"))
}

func TestPairKey_Other(t *testing.T) {
	key := PairKeyFor("a", "b")

	assert.Equal(t, "b", key.Other("a"))
	assert.Equal(t, "a", key.Other("b"))
	assert.Equal(t, "", key.Other("c"))
}

func TestNewPairScore_CanonicalisesParticipants(t *testing.T) {
	score := NewPairScore("zeta", "alpha", 0.9, 7.0, time.Now())

	assert.Equal(t, "alpha", score.ID1)
	assert.Equal(t, "zeta", score.ID2)
	assert.Equal(t, PairKey("alpha|zeta"), score.Key())
}

func TestPairScore_Qualifies(t *testing.T) {
	score := NewPairScore("a", "b", 0.9, 6.0, time.Now())

	assert.True(t, score.Qualifies(0.85, 5.0))
	assert.False(t, score.Qualifies(0.95, 5.0), "similarity below threshold")
	assert.False(t, score.Qualifies(0.85, 7.0), "AI score below threshold")
}
