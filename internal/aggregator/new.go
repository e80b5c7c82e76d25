package aggregator

import (
	"github.com/Jasonwill2004/ScribeAI/internal/logger"
	"github.com/Jasonwill2004/ScribeAI/pkg/executor"
)

type implAggregator struct {
	ffmpegPath string
	tempDir    string
	executor   executor.Executor
	logger     logger.Logger
}

// New creates an Aggregator. Concat manifests are written under tempDir.
func New(ffmpegPath, tempDir string, exec executor.Executor, log logger.Logger) Aggregator {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &implAggregator{
		ffmpegPath: ffmpegPath,
		tempDir:    tempDir,
		executor:   exec,
		logger:     log,
	}
}
