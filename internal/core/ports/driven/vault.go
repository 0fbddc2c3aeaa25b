package driven

import (
	"context"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
)

// VaultStore provides access to the note vault. The adapter owns all path
// semantics, exclusion rules and note syntax (front matter, managed-region
// boundary); the engine only ever sees the already-split Note regions.
type VaultStore interface {
	// List returns every tracked note in the vault, already filtered by the
	// adapter's exclusion rules.
	List(ctx context.Context) ([]domain.NoteRef, error)

	// Read loads and parses a note.
	Read(ctx context.Context, ref domain.NoteRef) (*domain.Note, error)

	// EnsureID returns the note's stable id, assigning and persisting a new
	// one into the note's front matter if absent.
	EnsureID(ctx context.Context, ref domain.NoteRef) (string, error)

	// WriteManagedRegion replaces everything below the note's boundary
	// marker with content, appending the marker first if missing. The
	// user-authored region above the marker is never touched.
	WriteManagedRegion(ctx context.Context, ref domain.NoteRef, content string) error

	// WriteTags writes machine-generated tags into the note's front matter.
	WriteTags(ctx context.Context, ref domain.NoteRef, tags []string) error

	// Exists reports whether a note is present at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Watch emits rename and delete notifications until ctx is cancelled.
	Watch(ctx context.Context) (<-chan domain.VaultEvent, error)
}
