package domain

import "time"

// DocumentRecord holds per-note metadata tracked by the master index.
// One record exists for every note the engine has processed.
type DocumentRecord struct {
	// ID is the stable note identifier (UUID). Assigned once, persisted in
	// the note's front matter, never reused.
	ID string `json:"id"`

	// Location is the current vault-relative path. Updated on rename.
	Location string `json:"location"`

	// ContentFingerprint is the hash of the note's main content (everything
	// above the managed-region boundary) at last successful processing.
	ContentFingerprint string `json:"contentFingerprint"`

	// LastProcessedAt is when the note was last successfully embedded.
	LastProcessedAt time.Time `json:"lastProcessedAt"`

	// Tags are machine-assigned topic labels, in generation order.
	Tags []string `json:"tags,omitempty"`

	// TagsGeneratedAt is when tags were last generated. Nil means never.
	TagsGeneratedAt *time.Time `json:"tagsGeneratedAt,omitempty"`

	// HasFrontMatter records whether the note carried a front-matter block
	// at last read.
	HasFrontMatter bool `json:"hasFrontMatter"`

	// HasBoundary records whether the managed-region boundary marker exists.
	HasBoundary bool `json:"hasBoundary"`

	// HasManagedLinks records whether a managed link section is present.
	HasManagedLinks bool `json:"hasManagedLinks"`
}

// NoteRef identifies a note in the vault without loading its content.
type NoteRef struct {
	// Path is the vault-relative path.
	Path string

	// Title is the display name (filename without extension).
	Title string
}

// Note is a fully loaded vault note, split at the managed-region boundary.
// The vault adapter owns all parsing; the engine never inspects note syntax.
type Note struct {
	// Ref locates the note.
	Ref NoteRef

	// ID is the note's assigned UUID, empty if none has been written yet.
	ID string

	// MainContent is the user-authored region: everything above the
	// managed-region boundary marker, front matter excluded.
	MainContent string

	// ManagedContent is the machine-owned region below the boundary marker,
	// empty when no boundary exists.
	ManagedContent string

	// HasFrontMatter is true when the note begins with a front-matter block.
	HasFrontMatter bool

	// HasBoundary is true when the boundary marker is present.
	HasBoundary bool
}

// VaultEventType enumerates vault change notifications.
type VaultEventType string

// Vault event types.
const (
	VaultEventRenamed VaultEventType = "renamed"
	VaultEventDeleted VaultEventType = "deleted"
)

// VaultEvent is a rename or delete notification from the vault watcher.
type VaultEvent struct {
	// Type is the kind of change.
	Type VaultEventType

	// Path is the note's current path (the new path for renames).
	Path string

	// OldPath is the previous path for renames, empty otherwise.
	OldPath string
}
