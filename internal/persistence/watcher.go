package persistence

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ExternalChangeHandler is called, debounced, when a level's backing file
// changes on disk through some path other than this process's own Save.
type ExternalChangeHandler func(path string)

// FileWatcher watches a single graph file for changes made outside this
// process (a human hand-editing it, a second copy of the file restored
// from a backup, etc). It is advisory only per spec: detection never
// blocks or alters the store's own load/save semantics, it only reports.
//
// fsnotify watches directories rather than individual inodes, since Save's
// temp-file-plus-rename sequence replaces the watched file's inode on every
// write; FileWatcher watches path's parent directory and filters events
// down to path itself.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	handler  ExternalChangeHandler
	debounce time.Duration

	mu          sync.Mutex
	ignoreUntil time.Time
}

// NewFileWatcher creates a watcher for path. The caller must call Start to
// begin watching and Close when done.
func NewFileWatcher(path string, handler ExternalChangeHandler) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, err
	}

	dir := filepath.Dir(abs)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	return &FileWatcher{watcher: w, path: abs, handler: handler, debounce: 250 * time.Millisecond}, nil
}

// Start runs the watch loop in its own goroutine until ctx is canceled or
// Close is called.
func (fw *FileWatcher) Start(ctx context.Context) {
	go fw.loop(ctx)
}

func (fw *FileWatcher) loop(ctx context.Context) {
	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if fw.withinOwnWrite() {
				continue
			}

			path := fw.path
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(fw.debounce, func() { fw.handler(path) })

		case _, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// ExpectOwnWrite tells the watcher to ignore events for a short window,
// covering the Save call the caller is about to make. Without this every
// maintenance-tick save would be misreported as an external change.
func (fw *FileWatcher) ExpectOwnWrite() {
	fw.mu.Lock()
	fw.ignoreUntil = time.Now().Add(fw.debounce * 4)
	fw.mu.Unlock()
}

func (fw *FileWatcher) withinOwnWrite() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return time.Now().Before(fw.ignoreUntil)
}

// Close stops watching and releases the underlying inotify/kqueue handle.
func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}

// logExternalChange is the default handler wiring used by Store: logs a
// warning identifying the level and path. Kept here, not in store, so a
// caller without a logger can still get sensible behavior in tests.
func logExternalChange(logger *slog.Logger, level, path string) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("external modification detected on graph file outside this process",
		"level", level, "path", path)
}

// LogExternalChange is the exported form of logExternalChange, for callers
// outside this package building their own ExternalChangeHandler.
func LogExternalChange(logger *slog.Logger, level string) ExternalChangeHandler {
	return func(path string) {
		logExternalChange(logger, level, path)
	}
}
