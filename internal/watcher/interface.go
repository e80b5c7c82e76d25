package watcher

import (
	"context"
	"time"
)

// Watcher waits for files to stop changing on disk.
type Watcher interface {
	// WaitStable blocks until path has the same non-zero size on Config.Checks
	// consecutive polls and returns that size.
	WaitStable(ctx context.Context, path string) (int64, error)
}

// Config controls the stability poll.
type Config struct {
	Interval time.Duration
	Checks   int
	Timeout  time.Duration
}
