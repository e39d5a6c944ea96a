package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/souschef/internal/checksum"
)

// DefaultDebounce is how long the watcher waits for the document directory
// to settle before reindexing.
const DefaultDebounce = time.Second

// EventCallback is called after a watcher-driven rebuild or clear finishes.
type EventCallback func(Status, error)

// Watch observes the Document Store root and keeps the index in step with
// it until ctx is cancelled. Bursts of changes are debounced into one
// rebuild; an empty store clears the index. cb may be nil.
//
// New directories created at runtime are added to the watch list.
func Watch(ctx context.Context, m *Manager, debounce time.Duration, logger *slog.Logger, cb EventCallback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	root := m.store.Root()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			Reconcile(ctx, m, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					schedule()
					continue
				}
			}

			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil || !m.store.Matches(rel) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Debug("watcher: change", slog.String("path", rel), slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// Reconcile compares the store against the published index and rebuilds or
// clears when they differ. A rebuild runs in the background; cb hears about it.
func Reconcile(ctx context.Context, m *Manager, logger *slog.Logger, cb EventCallback) {
	metas, err := m.store.List()
	if err != nil {
		logger.Warn("watcher: list failed", slog.String("error", err.Error()))
		return
	}

	h := m.Current()
	if len(metas) == 0 {
		if h == nil {
			return
		}
		st, err := m.Clear(ctx)
		if cb != nil {
			cb(st, err)
		}
		return
	}
	if h != nil && h.Fingerprint == checksum.Fingerprint(metas) {
		return
	}
	m.RebuildAsync(ctx, cb)
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
