package transcriber

import (
	"github.com/Jasonwill2004/ScribeAI/internal/logger"
	"github.com/Jasonwill2004/ScribeAI/pkg/executor"
)

// Config locates the ffmpeg and whisper.cpp binaries.
type Config struct {
	FFmpegPath string
	BinaryPath string
	ModelPath  string
	Prompt     string
	Threads    int
	TempDir    string
}

type implTranscriber struct {
	cfg      Config
	executor executor.Executor
	logger   logger.Logger
}

// New creates a whisper.cpp backed Transcriber.
func New(cfg Config, exec executor.Executor, log logger.Logger) Transcriber {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 4
	}
	return &implTranscriber{
		cfg:      cfg,
		executor: exec,
		logger:   log,
	}
}
