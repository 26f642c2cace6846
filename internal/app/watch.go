package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vk/ecflowgen/internal/ctxlog"
	"github.com/vk/ecflowgen/internal/fsutil"
)

// DefaultDebounce is how long watch mode waits for the files to settle.
const DefaultDebounce = 300 * time.Millisecond

// watch recompiles after every change to the suite files until ctx ends.
// Compilation errors are logged and do not stop watching.
func (a *App) watch(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	w, err := newWatcher(logger, a.config.SuitePaths, a.debounce, a.extensions())
	if err != nil {
		return err
	}
	defer w.stop()
	changes := w.start()

	for {
		if err := a.compile(ctx); err != nil {
			logger.Error("Compilation failed.", "error", err)
		}
		logger.Info("Watching suite files for changes.", "paths", a.config.SuitePaths)

		select {
		case <-ctx.Done():
			logger.Info("Watch mode stopped.")
			return nil
		case <-changes:
			logger.Info("Suite files changed, recompiling.")
		}
	}
}

// extensions are the suite file extensions worth reacting to.
func (a *App) extensions() []string {
	if d, ok := a.loader.(interface{ Extensions() []string }); ok {
		return d.Extensions()
	}
	return DefaultLoader().Extensions()
}

// watcher signals debounced changes to suite files. fsnotify does not
// recurse, so every directory below a watched path is added, including
// directories created later.
type watcher struct {
	logger    *slog.Logger
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	exts      []string
	onChange  chan struct{}
	done      chan struct{}
}

func newWatcher(logger *slog.Logger, paths []string, debounce time.Duration, exts []string) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	w := &watcher{
		logger:    logger,
		fsWatcher: fsw,
		debounce:  debounce,
		exts:      exts,
		onChange:  make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, p := range paths {
		if err := w.add(p); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// add watches path: a directory tree, or the directory holding a file.
func (w *watcher) add(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	if !info.IsDir() {
		dir := filepath.Dir(path)
		if err := w.fsWatcher.Add(dir); err != nil {
			return fmt.Errorf("watching directory %s: %w", dir, err)
		}
		return nil
	}
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsWatcher.Add(p); err != nil {
			return fmt.Errorf("watching directory %s: %w", p, err)
		}
		return nil
	})
}

func (w *watcher) start() <-chan struct{} {
	go w.loop()
	return w.onChange
}

func (w *watcher) stop() {
	close(w.done)
	_ = w.fsWatcher.Close()
}

// loop processes file system events with debouncing.
func (w *watcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.handle(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case w.onChange <- struct{}{}:
			default:
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Debug("File watcher error.", "error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// handle reports whether event changes a suite file. New directories are
// watched as they appear.
func (w *watcher) handle(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.add(event.Name); err != nil {
				w.logger.Debug("Cannot watch new directory.", "path", event.Name, "error", err)
			}
			return false
		}
	}
	return w.isRelevant(event)
}

func (w *watcher) isRelevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return fsutil.HasExtension(event.Name, w.exts...)
}
