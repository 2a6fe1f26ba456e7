package events

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Store holds the active catalog. Readers never block; a reload swaps the
// whole catalog.
type Store struct {
	current atomic.Pointer[Catalog]
	path    string
}

// NewStore loads path (or the built-in catalog when path is empty).
func NewStore(path string) (*Store, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.current.Store(&c)
	return s, nil
}

// Catalog returns the active catalog.
func (s *Store) Catalog() Catalog {
	return *s.current.Load()
}

// Reload re-reads the file. On error the active catalog is kept.
func (s *Store) Reload() error {
	c, err := Load(s.path)
	if err != nil {
		return err
	}
	s.current.Store(&c)
	return nil
}

// Watch reloads the catalog whenever its file changes, until ctx is done.
// The parent directory is watched so editors that replace the file are
// seen. A store without a file returns immediately.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", s.path, err)
	}
	target := filepath.Clean(s.path)
	slog.Info("watching events file", "path", target)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := s.Reload(); err != nil {
				slog.Warn("events reload failed, keeping previous catalog", "path", target, "error", err)
				continue
			}
			slog.Info("events reloaded", "path", target, "events", len(s.Catalog()))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("events watcher error", "error", err)
		}
	}
}
