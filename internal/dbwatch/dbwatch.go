// Package dbwatch notices when the history database file is deleted while
// the daemon runs, so the store can be recreated instead of writing to an
// unlinked file.
package dbwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after a removal event before the
// callback runs.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches the parent directory of a file, since fsnotify cannot
// watch a file that is about to disappear.
type Watcher struct {
	target   string
	dir      string
	onRemove func(context.Context) error
	debounce time.Duration
}

// New returns a Watcher calling onRemove after path is removed or renamed
// away.
func New(path string, onRemove func(context.Context) error) *Watcher {
	target := filepath.Clean(path)
	return &Watcher{
		target:   target,
		dir:      filepath.Dir(target),
		onRemove: onRemove,
		debounce: DefaultDebounce,
	}
}

// SetDebounce overrides DefaultDebounce.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Run watches until ctx is cancelled. Callback errors are logged, not
// returned; the watch continues.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("dbwatch: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("dbwatch: watch %s: %w", w.dir, err)
	}
	slog.Debug("database watch started", "path", w.target)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.target || !ev.Has(fsnotify.Remove|fsnotify.Rename) {
				continue
			}
			slog.Debug("database file event", "op", ev.Op.String(), "path", ev.Name)
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerCh = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("database watch error", "err", err)

		case <-timerCh:
			timerCh = nil
			if _, err := os.Stat(w.target); !errors.Is(err, os.ErrNotExist) {
				continue
			}
			slog.Warn("database file removed, recreating", "path", w.target)
			if err := w.onRemove(ctx); err != nil {
				slog.Error("database recreate failed", "path", w.target, "err", err)
			}
		}
	}
}
