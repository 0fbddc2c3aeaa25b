// Package domain defines the core business entities for Notelink.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - DocumentRecord: Per-note metadata tracked by the master index
//   - PairScore: Similarity and relevance scores for a note pair
//   - MasterIndex: The aggregate source of truth (records, pairs, ledger)
//   - ScoreGraph: Derived adjacency index over the pair map
//   - TaskInfo / FailureRecord: Pipeline task and failure bookkeeping
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
