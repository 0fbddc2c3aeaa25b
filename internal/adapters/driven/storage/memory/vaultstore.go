package memory

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
	"github.com/custodia-labs/notelink-cli/internal/core/ports/driven"
)

// Ensure VaultStore implements the interface.
var _ driven.VaultStore = (*VaultStore)(nil)

// storedNote is the in-memory note representation.
type storedNote struct {
	id      string
	main    string
	managed string
	tags    []string
}

// VaultStore is an in-memory implementation of driven.VaultStore.
// Tests seed it with AddNote and inspect managed regions with ManagedRegion.
type VaultStore struct {
	mu     sync.RWMutex
	notes  map[string]*storedNote
	events chan domain.VaultEvent
}

// NewVaultStore creates a new in-memory vault store.
func NewVaultStore() *VaultStore {
	return &VaultStore{
		notes:  make(map[string]*storedNote),
		events: make(chan domain.VaultEvent, 16),
	}
}

// AddNote seeds a note with the given main content. Returns its path.
func (s *VaultStore) AddNote(notePath, mainContent string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[notePath] = &storedNote{main: mainContent}
	return notePath
}

// SetMainContent replaces a note's user-authored region.
func (s *VaultStore) SetMainContent(notePath, mainContent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if note, ok := s.notes[notePath]; ok {
		note.main = mainContent
	}
}

// RemoveNote deletes a note without emitting an event.
func (s *VaultStore) RemoveNote(notePath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notes, notePath)
}

// ManagedRegion returns the machine-owned region of a note.
func (s *VaultStore) ManagedRegion(notePath string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if note, ok := s.notes[notePath]; ok {
		return note.managed
	}
	return ""
}

// Tags returns the machine-written tags of a note.
func (s *VaultStore) Tags(notePath string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if note, ok := s.notes[notePath]; ok {
		return note.tags
	}
	return nil
}

// Emit delivers a vault event to the watcher channel.
func (s *VaultStore) Emit(event domain.VaultEvent) {
	s.events <- event
}

// List returns every note in the vault, sorted by path.
func (s *VaultStore) List(_ context.Context) ([]domain.NoteRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := make([]domain.NoteRef, 0, len(s.notes))
	for notePath := range s.notes {
		refs = append(refs, domain.NoteRef{Path: notePath, Title: titleOf(notePath)})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })
	return refs, nil
}

// Read loads and parses a note.
func (s *VaultStore) Read(_ context.Context, ref domain.NoteRef) (*domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	note, ok := s.notes[ref.Path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.Note{
		Ref:            ref,
		ID:             note.id,
		MainContent:    note.main,
		ManagedContent: note.managed,
		HasFrontMatter: note.id != "",
		HasBoundary:    note.managed != "",
	}, nil
}

// EnsureID returns the note's stable id, assigning one if absent.
func (s *VaultStore) EnsureID(_ context.Context, ref domain.NoteRef) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	note, ok := s.notes[ref.Path]
	if !ok {
		return "", domain.ErrNotFound
	}
	if note.id == "" {
		note.id = uuid.NewString()
	}
	return note.id, nil
}

// WriteManagedRegion replaces the machine-owned region of a note.
func (s *VaultStore) WriteManagedRegion(_ context.Context, ref domain.NoteRef, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	note, ok := s.notes[ref.Path]
	if !ok {
		return domain.ErrNotFound
	}
	note.managed = content
	return nil
}

// WriteTags writes machine-generated tags into the note.
func (s *VaultStore) WriteTags(_ context.Context, ref domain.NoteRef, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	note, ok := s.notes[ref.Path]
	if !ok {
		return domain.ErrNotFound
	}
	note.tags = append([]string(nil), tags...)
	return nil
}

// Exists reports whether a note is present at path.
func (s *VaultStore) Exists(_ context.Context, notePath string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.notes[notePath]
	return ok, nil
}

// Watch emits rename and delete notifications until ctx is cancelled.
func (s *VaultStore) Watch(ctx context.Context) (<-chan domain.VaultEvent, error) {
	out := make(chan domain.VaultEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-s.events:
				select {
				case <-ctx.Done():
					return
				case out <- event:
				}
			}
		}
	}()
	return out, nil
}

func titleOf(notePath string) string {
	base := path.Base(notePath)
	return strings.TrimSuffix(base, path.Ext(base))
}
