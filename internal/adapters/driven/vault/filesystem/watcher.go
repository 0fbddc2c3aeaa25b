package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
	"github.com/custodia-labs/notelink-cli/internal/logger"
)

// renamePairWindow is how long a rename of an old path waits for the
// create of its new path before being treated as a deletion. Filesystems
// deliver the two halves of a rename as separate events.
const renamePairWindow = 250 * time.Millisecond

// Watch emits rename and delete notifications for notes until ctx is
// cancelled. New subdirectories are watched as they appear.
func (s *VaultStore) Watch(ctx context.Context) (<-chan domain.VaultEvent, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := addRecursive(watcher, s.root); err != nil {
		watcher.Close()
		return nil, err
	}

	out := make(chan domain.VaultEvent, 16)
	go s.watchLoop(ctx, watcher, out)
	return out, nil
}

func (s *VaultStore) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- domain.VaultEvent) {
	defer close(out)
	defer watcher.Close()

	// Pending rename source waiting for its create counterpart.
	var pendingOld string
	var pendingTimer *time.Timer
	expired := make(chan string, 1)

	flushPending := func() {
		if pendingTimer != nil {
			pendingTimer.Stop()
			pendingTimer = nil
		}
		pendingOld = ""
	}

	emit := func(event domain.VaultEvent) bool {
		select {
		case <-ctx.Done():
			return false
		case out <- event:
			return true
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case old := <-expired:
			if old != pendingOld {
				continue // superseded
			}
			flushPending()
			if !emit(domain.VaultEvent{Type: domain.VaultEventDeleted, Path: old}) {
				return
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Vault watcher: %v", err)

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			rel, err := filepath.Rel(s.root, event.Name)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case event.Op.Has(fsnotify.Create):
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !excluded(filepath.Base(event.Name)) {
						if err := addRecursive(watcher, event.Name); err != nil {
							logger.Warn("Vault watcher: %v", err)
						}
					}
					continue
				}
				if !isNotePath(rel) {
					continue
				}
				if pendingOld != "" {
					old := pendingOld
					flushPending()
					if !emit(domain.VaultEvent{Type: domain.VaultEventRenamed, Path: rel, OldPath: old}) {
						return
					}
				}

			case event.Op.Has(fsnotify.Rename):
				if !isNotePath(rel) {
					continue
				}
				flushPending()
				pendingOld = rel
				old := rel
				pendingTimer = time.AfterFunc(renamePairWindow, func() {
					select {
					case expired <- old:
					default:
					}
				})

			case event.Op.Has(fsnotify.Remove):
				if !isNotePath(rel) {
					continue
				}
				if !emit(domain.VaultEvent{Type: domain.VaultEventDeleted, Path: rel}) {
					return
				}
			}
		}
	}
}

// isNotePath reports whether a vault-relative path names a note that the
// engine tracks.
func isNotePath(rel string) bool {
	if !strings.HasSuffix(rel, noteExt) {
		return false
	}
	for _, part := range strings.Split(rel, "/") {
		if excluded(part) {
			return false
		}
	}
	return true
}

// addRecursive watches dir and every non-excluded subdirectory beneath it.
func addRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != dir && excluded(entry.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
