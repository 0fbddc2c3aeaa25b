package domain

import "sort"

// ScoreGraph is a bidirectional adjacency index over the master index's pair
// map. It exists to answer "what touches document X" in O(degree) instead of
// scanning all pairs. It is a pure cache: derived from the pair map, rebuilt
// or patched whenever scores are merged, invalidated or documents deleted.
// A stale graph is a correctness bug, not a performance tradeoff.
type ScoreGraph struct {
	adjacency map[string][]PairScore
}

// NewScoreGraph builds the graph from a pair map. Each pair is inserted
// twice, once per direction. O(P) in the pair count.
func NewScoreGraph(pairs map[PairKey]PairScore) *ScoreGraph {
	g := &ScoreGraph{adjacency: make(map[string][]PairScore, len(pairs))}
	for _, score := range pairs {
		g.insert(score)
	}
	g.sortAll()
	return g
}

func (g *ScoreGraph) insert(score PairScore) {
	g.adjacency[score.ID1] = append(g.adjacency[score.ID1], score)
	g.adjacency[score.ID2] = append(g.adjacency[score.ID2], score)
}

func (g *ScoreGraph) sortAll() {
	for id := range g.adjacency {
		g.sortID(id)
	}
}

// sortID orders id's adjacency by AI score descending. Ties keep a stable
// order so repeated queries agree.
func (g *ScoreGraph) sortID(id string) {
	sort.SliceStable(g.adjacency[id], func(i, j int) bool {
		return g.adjacency[id][i].AIScore > g.adjacency[id][j].AIScore
	})
}

// Add patches a single pair into the graph, replacing any existing entry for
// the same canonical key.
func (g *ScoreGraph) Add(score PairScore) {
	g.removeKey(score.Key())
	g.insert(score)
	g.sortID(score.ID1)
	g.sortID(score.ID2)
}

// RemoveDocument drops every adjacency entry touching id.
func (g *ScoreGraph) RemoveDocument(id string) {
	for _, score := range g.adjacency[id] {
		other := score.Other(id)
		g.adjacency[other] = filterOut(g.adjacency[other], id)
		if len(g.adjacency[other]) == 0 {
			delete(g.adjacency, other)
		}
	}
	delete(g.adjacency, id)
}

func (g *ScoreGraph) removeKey(key PairKey) {
	id1, id2 := key.IDs()
	for _, id := range []string{id1, id2} {
		kept := g.adjacency[id][:0]
		for _, s := range g.adjacency[id] {
			if s.Key() != key {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(g.adjacency, id)
		} else {
			g.adjacency[id] = kept
		}
	}
}

func filterOut(scores []PairScore, id string) []PairScore {
	kept := scores[:0]
	for _, s := range scores {
		if !s.Key().Contains(id) {
			kept = append(kept, s)
		}
	}
	return kept
}

// ScoresFor returns all pairs touching id, sorted by AI score descending.
// The returned slice is a copy; callers may mutate it.
func (g *ScoreGraph) ScoresFor(id string) []PairScore {
	scores := g.adjacency[id]
	out := make([]PairScore, len(scores))
	copy(out, scores)
	return out
}

// TopNeighbors returns up to limit neighbour ids of id, best AI score first.
func (g *ScoreGraph) TopNeighbors(id string, limit int) []string {
	scores := g.adjacency[id]
	if limit > len(scores) {
		limit = len(scores)
	}
	neighbors := make([]string, 0, limit)
	for _, score := range scores[:limit] {
		neighbors = append(neighbors, score.Other(id))
	}
	return neighbors
}

// Degree returns the number of pairs touching id.
func (g *ScoreGraph) Degree(id string) int {
	return len(g.adjacency[id])
}
