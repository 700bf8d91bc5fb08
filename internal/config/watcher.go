package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the event bursts editors produce when saving
// (truncate + write, or temp-file + rename) into a single reload.
const watchDebounce = 200 * time.Millisecond

// Watcher reloads the config file when it changes on disk and hands the
// result to a callback. The watch is on the containing directory, not the
// file itself: editors and our own Save replace the file by rename, which
// would silently break a direct file watch.
type Watcher struct {
	path     string
	onChange func(Config)
	fsw      *fsnotify.Watcher
}

// NewWatcher prepares a watcher for the config file at path. onChange runs
// on the watcher's goroutine with each successfully reloaded config; it must
// not block.
func NewWatcher(path string, onChange func(Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("config watcher: mkdir: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("config watcher: watch %s: %w", dir, err)
	}

	return &Watcher{path: path, onChange: onChange, fsw: fsw}, nil
}

// Run blocks processing filesystem events until ctx is cancelled or the
// underlying watcher shuts down.
func (w *Watcher) Run(ctx context.Context) {
	// Inactive until the first relevant event arrives.
	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.matchesConfigFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(watchDebounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("[config] watcher error", "error", err)
		case <-debounce.C:
			w.reload()
		}
	}
}

// Close stops the underlying filesystem watcher, which also unblocks Run.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) matchesConfigFile(name string) bool {
	return filepath.Base(name) == filepath.Base(w.path)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		// Keep the last good config; a half-written or malformed file must
		// not reset the running settings.
		slog.Warn("[config] reload failed, keeping current settings", "path", w.path, "error", err)
		return
	}
	slog.Debug("[config] reloaded from disk", "path", w.path)
	w.onChange(cfg)
}
