package driving

import (
	"context"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
)

// RunOptions configures a pipeline run.
type RunOptions struct {
	// Force re-embeds every note regardless of fingerprint.
	Force bool

	// GenerateTags enables the tag generation stage for changed notes.
	GenerateTags bool
}

// RelatedNote is one neighbour in a related-notes query result.
type RelatedNote struct {
	// Path is the neighbour's vault path.
	Path string

	// Title is the neighbour's display name.
	Title string

	// AIScore is the LLM relevance score for the pair.
	AIScore float64

	// Similarity is the embedding-space similarity for the pair.
	Similarity float64
}

// Indexer runs the discovery pipeline and answers related-note queries.
type Indexer interface {
	// Run executes the full pipeline (detect changes, embed, score,
	// reconcile) under the single-flight task lock. Returns
	// domain.ErrTaskInProgress when another task is running.
	Run(ctx context.Context, opts RunOptions) error

	// Related returns the top related notes for the note at path.
	Related(ctx context.Context, path string, limit int) ([]RelatedNote, error)

	// CleanupOrphans removes records whose notes no longer exist in the
	// vault and returns how many were removed.
	CleanupOrphans(ctx context.Context) (int, error)

	// Stats returns current index statistics.
	Stats(ctx context.Context) (domain.IndexStats, error)
}

// TaskController observes and cancels the running pipeline task.
type TaskController interface {
	// Current returns a copy of the running task's info, nil when idle.
	Current() *domain.TaskInfo

	// Cancel requests cooperative cancellation of the running task.
	// Returns domain.ErrNotFound when no task is running.
	Cancel() error
}
