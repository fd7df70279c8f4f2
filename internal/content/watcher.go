package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dshills/retroweb/internal/logging"
	"github.com/dshills/retroweb/internal/metrics"
)

// debounceWindow coalesces the burst of events an editor save produces.
const debounceWindow = 250 * time.Millisecond

// Watcher reloads the store when files under the content directory change.
type Watcher struct {
	dir   string
	opts  Options
	store *Store
	log   *zap.Logger
}

// NewWatcher creates a watcher over dir feeding store.
func NewWatcher(dir string, opts Options, store *Store) *Watcher {
	return &Watcher{
		dir:   dir,
		opts:  opts,
		store: store,
		log:   logging.Named("content"),
	}
}

// Run watches until ctx is cancelled. Reload failures are logged and the
// previous snapshot stays in place.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	for _, sub := range []string{w.dir, filepath.Join(w.dir, "projects"), filepath.Join(w.dir, "blog")} {
		if _, err := os.Stat(sub); err != nil {
			continue
		}
		if err := fw.Add(sub); err != nil {
			return fmt.Errorf("watch %s: %w", sub, err)
		}
	}

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce: restart the window on every event.
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(debounceWindow)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	snap, err := Load(w.dir, w.opts)
	if err != nil {
		w.log.Error("content reload failed", zap.Error(err))
		return
	}
	w.store.Replace(snap)
	metrics.ContentReloaded()
	w.log.Info("content reloaded",
		zap.Int("projects", len(snap.Projects)),
		zap.Int("posts", len(snap.Posts)))
}
