package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
	"github.com/custodia-labs/notelink-cli/internal/core/ports/driven"
)

// Ensure VaultStore implements the interface.
var _ driven.VaultStore = (*VaultStore)(nil)

// BoundaryMarker delimits the managed region. Everything from the marker to
// the end of the note is machine-owned and rewritten wholesale.
const BoundaryMarker = "<!-- notelink:related -->"

// noteExt is the only file extension treated as a note.
const noteExt = ".md"

// VaultStore reads and writes markdown notes under a root directory.
type VaultStore struct {
	root string
}

// NewVaultStore creates a vault store rooted at root.
func NewVaultStore(root string) (*VaultStore, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("vault root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %s: %w: not a directory", root, domain.ErrInvalidInput)
	}
	return &VaultStore{root: root}, nil
}

// Root returns the vault root directory.
func (s *VaultStore) Root() string {
	return s.root
}

// excluded reports whether a directory entry is skipped: hidden and
// underscore-prefixed directories, and anything that is not a markdown file.
func excluded(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// List walks the vault and returns every markdown note, sorted by path.
func (s *VaultStore) List(_ context.Context) ([]domain.NoteRef, error) {
	var refs []domain.NoteRef
	err := filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != s.root && excluded(entry.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if excluded(entry.Name()) || !strings.HasSuffix(entry.Name(), noteExt) {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		refs = append(refs, domain.NoteRef{Path: rel, Title: titleOf(rel)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking vault: %w", err)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })
	return refs, nil
}

// Read loads and splits a note into front matter, main and managed regions.
func (s *VaultStore) Read(_ context.Context, ref domain.NoteRef) (*domain.Note, error) {
	raw, err := s.readRaw(ref.Path)
	if err != nil {
		return nil, err
	}
	parsed, err := parseNote(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ref.Path, err)
	}
	return &domain.Note{
		Ref:            ref,
		ID:             parsed.id,
		MainContent:    parsed.main,
		ManagedContent: parsed.managed,
		HasFrontMatter: parsed.hasFrontMatter,
		HasBoundary:    parsed.hasBoundary,
	}, nil
}

// EnsureID returns the note's stable id from front matter, assigning and
// persisting a fresh UUID when absent.
func (s *VaultStore) EnsureID(_ context.Context, ref domain.NoteRef) (string, error) {
	raw, err := s.readRaw(ref.Path)
	if err != nil {
		return "", err
	}
	id, updated, changed, err := ensureNoteID(raw)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", ref.Path, err)
	}
	if changed {
		if err := s.writeRaw(ref.Path, updated); err != nil {
			return "", err
		}
	}
	return id, nil
}

// WriteManagedRegion replaces everything below the boundary marker with
// content, appending the marker first when missing. The user-authored
// region above the marker is preserved byte for byte. The write is skipped
// when the rendered note is unchanged.
func (s *VaultStore) WriteManagedRegion(_ context.Context, ref domain.NoteRef, content string) error {
	raw, err := s.readRaw(ref.Path)
	if err != nil {
		return err
	}
	updated := replaceManagedRegion(raw, content)
	if updated == raw {
		return nil
	}
	return s.writeRaw(ref.Path, updated)
}

// WriteTags writes machine-generated tags into the note's front matter.
func (s *VaultStore) WriteTags(_ context.Context, ref domain.NoteRef, tags []string) error {
	raw, err := s.readRaw(ref.Path)
	if err != nil {
		return err
	}
	updated, err := setFrontMatterTags(raw, tags)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", ref.Path, err)
	}
	if updated == raw {
		return nil
	}
	return s.writeRaw(ref.Path, updated)
}

// Exists reports whether a note is present at path.
func (s *VaultStore) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(s.abs(path))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return true, nil
}

func (s *VaultStore) abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

func (s *VaultStore) readRaw(rel string) (string, error) {
	data, err := os.ReadFile(s.abs(rel))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("note %s: %w", rel, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rel, err)
	}
	return string(data), nil
}

func (s *VaultStore) writeRaw(rel, content string) error {
	if err := os.WriteFile(s.abs(rel), []byte(content), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	return nil
}

func titleOf(rel string) string {
	base := filepath.Base(rel)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
