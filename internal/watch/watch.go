// Package watch re-runs a function whenever files under a directory change.
// Rapid bursts of changes, such as a full site rebuild, are grouped into a
// single run.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a directory tree. fsnotify is not recursive, so every
// subdirectory is added on its own and new ones are picked up as they appear.
type Watcher struct {
	fsw    *fsnotify.Watcher
	root   string
	delay  time.Duration
	logger *slog.Logger
}

func New(logger *slog.Logger, root string, delay time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		fsw:    fsw,
		root:   root,
		delay:  delay,
		logger: logger.With(slog.String("watch_root", root)),
	}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to walk %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Run calls fn once straight away and again after every burst of changes
// that is followed by delay of quiet. Errors from fn are logged and the
// watch continues. Run returns when ctx is done or the watcher fails.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context) error) error {
	w.run(ctx, fn)

	// Armed only once an event arrives.
	timer := time.NewTimer(w.delay)
	timer.Stop()
	pending := 0

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.logger.DebugContext(ctx, "File changed", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			if event.Has(fsnotify.Create) {
				w.watchIfDir(ctx, event.Name)
			}
			pending++
			timer.Reset(w.delay)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("file watcher failed: %w", err)

		case <-timer.C:
			w.logger.InfoContext(ctx, "Changes detected, re-running", slog.Int("events", pending))
			pending = 0
			w.run(ctx, fn)
		}
	}
}

func (w *Watcher) run(ctx context.Context, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Run failed", slog.Any("error", err))
	}
}

func (w *Watcher) watchIfDir(ctx context.Context, path string) {
	if err := w.addTree(path); err != nil {
		w.logger.WarnContext(ctx, "Could not watch new path", slog.String("path", path), slog.Any("error", err))
	}
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}
