// Package watch reports knowledge base changes using fsnotify.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/kairoscope/internal/adapters/driven/sources/filesystem"
	"github.com/custodia-labs/kairoscope/internal/core/ports/driven"
	"github.com/custodia-labs/kairoscope/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driven.SourceWatcher = (*Watcher)(nil)

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("watcher closed")

// relevantOps are the operations that can change what a build would read.
const relevantOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// Watcher watches the knowledge base root and its source directories.
type Watcher struct {
	root string

	mu     sync.Mutex
	fsw    *fsnotify.Watcher
	closed bool
}

// New creates a watcher for the knowledge base at root.
func New(root string) *Watcher {
	return &Watcher{root: root}
}

// Watch blocks, calling onChange for every source file change, until ctx
// is done or the watcher is closed. A source directory created after
// Watch starts is picked up.
func (w *Watcher) Watch(ctx context.Context, onChange func(path string)) error {
	fsw, err := w.start()
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if path, changed := w.handleEvent(fsw, event); changed {
				onChange(path)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watching %s: %v", w.root, err)
		}
	}
}

func (w *Watcher) start() (*fsnotify.Watcher, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}
	if w.fsw != nil {
		return nil, errors.New("watcher already running")
	}

	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("watching knowledge base: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watching knowledge base: %s is not a directory", w.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(w.root); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", w.root, err)
	}
	for _, dir := range []string{filesystem.StructuredDir, filesystem.UnstructuredDir} {
		addDir(fsw, filepath.Join(w.root, dir))
	}

	w.fsw = fsw
	logger.Debug("watching %s for changes", w.root)
	return fsw, nil
}

// addDir watches dir if it exists.
func addDir(fsw *fsnotify.Watcher, dir string) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return
	}
	if err := fsw.Add(dir); err != nil {
		logger.Warn("watching %s: %v", dir, err)
	}
}

// handleEvent filters an fsnotify event down to source file changes.
func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event) (string, bool) {
	if event.Op&relevantOps == 0 {
		return "", false
	}

	// A source directory appearing under the root.
	if event.Op.Has(fsnotify.Create) && filepath.Dir(event.Name) == filepath.Clean(w.root) {
		base := filepath.Base(event.Name)
		if base == filesystem.StructuredDir || base == filesystem.UnstructuredDir {
			addDir(fsw, event.Name)
			return event.Name, true
		}
	}

	if !filesystem.IsSourceFile(event.Name) {
		return "", false
	}
	return event.Name, true
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.fsw == nil {
		return nil
	}
	return w.fsw.Close()
}
