package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphFixture(t *testing.T) *ScoreGraph {
	t.Helper()
	pairs := map[PairKey]PairScore{}
	for _, score := range []PairScore{
		NewPairScore("a", "b", 0.9, 8.0, time.Now()),
		NewPairScore("a", "c", 0.88, 6.0, time.Now()),
		NewPairScore("b", "c", 0.86, 9.0, time.Now()),
	} {
		pairs[score.Key()] = score
	}
	return NewScoreGraph(pairs)
}

func TestScoreGraph_ScoresFor_SortedByAIScore(t *testing.T) {
	graph := graphFixture(t)

	scores := graph.ScoresFor("a")

	require.Len(t, scores, 2)
	assert.Equal(t, 8.0, scores[0].AIScore)
	assert.Equal(t, 6.0, scores[1].AIScore)
}

func TestScoreGraph_ScoresFor_UnknownID(t *testing.T) {
	graph := graphFixture(t)

	assert.Empty(t, graph.ScoresFor("missing"))
}

func TestScoreGraph_TopNeighbors(t *testing.T) {
	graph := graphFixture(t)

	neighbors := graph.TopNeighbors("b", 1)

	// b-c has AI score 9.0, b-a has 8.0
	require.Len(t, neighbors, 1)
	assert.Equal(t, "c", neighbors[0])
}

func TestScoreGraph_Add_ReplacesExistingPair(t *testing.T) {
	graph := graphFixture(t)

	graph.Add(NewPairScore("a", "b", 0.95, 2.0, time.Now()))

	assert.Equal(t, 2, graph.Degree("a"), "no duplicate entry after replace")
	scores := graph.ScoresFor("a")
	// Replaced pair sank to the bottom of the ordering
	assert.Equal(t, 2.0, scores[1].AIScore)
}

func TestScoreGraph_RemoveDocument(t *testing.T) {
	graph := graphFixture(t)

	graph.RemoveDocument("a")

	assert.Zero(t, graph.Degree("a"))
	assert.Equal(t, 1, graph.Degree("b"), "only b-c remains")
	assert.Equal(t, 1, graph.Degree("c"))
	assert.Equal(t, []string{"c"}, graph.TopNeighbors("b", 5))
}

func TestScoreGraph_MirrorsEachPairBothWays(t *testing.T) {
	pairs := map[PairKey]PairScore{}
	score := NewPairScore("x", "y", 0.9, 5.0, time.Now())
	pairs[score.Key()] = score
	graph := NewScoreGraph(pairs)

	assert.Equal(t, []string{"y"}, graph.TopNeighbors("x", 1))
	assert.Equal(t, []string{"x"}, graph.TopNeighbors("y", 1))
}
