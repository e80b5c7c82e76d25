package summarizer

import (
	"sync"

	"github.com/Jasonwill2004/ScribeAI/internal/logger"
)

type implSummarizer struct {
	backend Backend
	logger  logger.Logger
}

// New wraps backend with option handling and error classification.
func New(backend Backend, log logger.Logger) Summarizer {
	return &implSummarizer{
		backend: backend,
		logger:  log,
	}
}

// GeminiConfig holds the model name and the API keys rotated on quota errors.
type GeminiConfig struct {
	Model   string
	APIKeys []string
}

type implGemini struct {
	apiKeys    []string
	model      string
	logger     logger.Logger
	generate   generateFunc
	mu         sync.Mutex
	currentKey int
}

// NewGemini creates a Backend that calls the Gemini API, rotating through the supplied keys.
func NewGemini(cfg GeminiConfig, log logger.Logger) Backend {
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &implGemini{
		apiKeys:  cfg.APIKeys,
		model:    model,
		logger:   log,
		generate: generateContent,
	}
}

type implStub struct{}

// NewStub creates a Backend that returns a labelled placeholder and never fails.
func NewStub() Backend {
	return implStub{}
}

// NewFromConfig picks the Gemini backend when keys are present and the stub otherwise.
func NewFromConfig(cfg GeminiConfig, log logger.Logger) Backend {
	if len(cfg.APIKeys) == 0 {
		return NewStub()
	}
	return NewGemini(cfg, log)
}
