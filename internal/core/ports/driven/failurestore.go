package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
)

// FailureStore durably records failed batch operations so later runs can
// retry exactly the items that failed.
type FailureStore interface {
	// Record stores a new failure and returns its generated id.
	Record(ctx context.Context, record domain.FailureRecord) (string, error)

	// UnresolvedItems returns the document ids from all unresolved records
	// of the given kind, flattened and deduplicated. This is what the
	// change detector's smart forced retry consults.
	UnresolvedItems(ctx context.Context, kind domain.FailureKind) (map[string]bool, error)

	// List returns all failure records, newest first. When unresolvedOnly
	// is set, resolved records are omitted.
	List(ctx context.Context, unresolvedOnly bool) ([]domain.FailureRecord, error)

	// Resolve marks a record resolved by id.
	Resolve(ctx context.Context, id string) error

	// ResolveItems resolves per item: succeeded items are dropped from every
	// unresolved record of the given kind, and a record whose items all
	// succeeded is marked resolved. Items still failing remain unresolved.
	ResolveItems(ctx context.Context, kind domain.FailureKind, succeeded map[string]bool) error

	// Prune removes resolved records older than olderThan. Unresolved
	// records are never pruned.
	Prune(ctx context.Context, olderThan time.Time) (int, error)
}
