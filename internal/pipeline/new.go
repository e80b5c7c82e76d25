package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/Jasonwill2004/ScribeAI/internal/aggregator"
	"github.com/Jasonwill2004/ScribeAI/internal/chunkstore"
	"github.com/Jasonwill2004/ScribeAI/internal/logger"
	"github.com/Jasonwill2004/ScribeAI/internal/metrics"
	"github.com/Jasonwill2004/ScribeAI/internal/repository"
	"github.com/Jasonwill2004/ScribeAI/internal/summarizer"
	"github.com/Jasonwill2004/ScribeAI/internal/transcriber"
	"github.com/Jasonwill2004/ScribeAI/internal/watcher"
)

// Config tunes the finalize sequence.
type Config struct {
	TempDir         string
	MaxConcurrent   int
	FinalizeTimeout time.Duration
	Transcription   transcriber.Options
	Summary         summarizer.Options
}

// Deps are the collaborators the pipeline coordinates.
type Deps struct {
	Repo        repository.Repository
	Store       chunkstore.Store
	Aggregator  aggregator.Aggregator
	Watcher     watcher.Watcher
	Transcriber transcriber.Transcriber
	Summarizer  summarizer.Summarizer
	Metrics     *metrics.Metrics
	Logger      logger.Logger
}

type implPipeline struct {
	cfg         Config
	repo        repository.Repository
	store       chunkstore.Store
	aggregator  aggregator.Aggregator
	watcher     watcher.Watcher
	transcriber transcriber.Transcriber
	summarizer  summarizer.Summarizer
	metrics     *metrics.Metrics
	logger      logger.Logger

	locks *keyedMutex
	sem   *semaphore

	// baseCtx is cancelled only when Shutdown gives up waiting.
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	inflight  map[string]bool
	completed map[string]bool
}

// New creates a Pipeline.
func New(cfg Config, deps Deps) Pipeline {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = 15 * time.Minute
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	return &implPipeline{
		cfg:         cfg,
		repo:        deps.Repo,
		store:       deps.Store,
		aggregator:  deps.Aggregator,
		watcher:     deps.Watcher,
		transcriber: deps.Transcriber,
		summarizer:  deps.Summarizer,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		locks:       newKeyedMutex(),
		sem:         newSemaphore(cfg.MaxConcurrent),
		baseCtx:     baseCtx,
		cancel:      cancel,
		inflight:    make(map[string]bool),
		completed:   make(map[string]bool),
	}
}
