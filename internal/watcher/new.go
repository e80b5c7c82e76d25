package watcher

import (
	"time"

	"github.com/Jasonwill2004/ScribeAI/internal/logger"
)

// New creates a Watcher. Zero config values fall back to 500ms x3 within 30s.
func New(cfg Config, log logger.Logger) Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	if cfg.Checks <= 0 {
		cfg.Checks = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &implWatcher{
		cfg:    cfg,
		logger: log,
	}
}
