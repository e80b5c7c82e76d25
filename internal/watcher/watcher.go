package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Jasonwill2004/ScribeAI/internal/logger"
	"github.com/Jasonwill2004/ScribeAI/internal/models"
	"github.com/fsnotify/fsnotify"
)

type implWatcher struct {
	cfg    Config
	logger logger.Logger
}

// WaitStable polls the size of path every Interval. fsnotify write events on the
// file reset the streak early; if the notifier cannot start, polling alone is used.
func (w *implWatcher) WaitStable(ctx context.Context, path string) (int64, error) {
	var events <-chan fsnotify.Event
	if fsw, err := fsnotify.NewWatcher(); err != nil {
		w.logger.Debug(ctx, "fsnotify unavailable, polling only: %v", err)
	} else {
		defer fsw.Close()
		if err := fsw.Add(filepath.Dir(path)); err != nil {
			w.logger.Debug(ctx, "Cannot watch %s, polling only: %v", filepath.Dir(path), err)
		} else {
			events = fsw.Events
		}
	}

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()
	deadline := time.NewTimer(w.cfg.Timeout)
	defer deadline.Stop()

	lastSize := int64(-1)
	streak := 0

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()

		case <-deadline.C:
			return 0, fmt.Errorf("%w: %s did not stabilise within %s", models.ErrFileNotReady, path, w.cfg.Timeout)

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(event.Name) == filepath.Clean(path) && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				streak = 0
			}

		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				streak = 0
				lastSize = -1
				w.logger.Debug(ctx, "Waiting for %s: %v", path, err)
				continue
			}

			size := info.Size()
			if size > 0 && size == lastSize {
				streak++
			} else {
				streak = 0
			}
			lastSize = size

			// streak counts repeats, so Checks observations need Checks-1 repeats.
			if streak >= w.cfg.Checks-1 && size > 0 {
				w.logger.Debug(ctx, "File stable at %d bytes: %s", size, path)
				return size, nil
			}
		}
	}
}
