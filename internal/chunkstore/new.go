package chunkstore

import (
	"github.com/Jasonwill2004/ScribeAI/internal/logger"
)

type implStore struct {
	root   string
	logger logger.Logger
}

// New creates a Store rooted at dir. Each session gets dir/<sessionID>.
func New(dir string, log logger.Logger) Store {
	return &implStore{
		root:   dir,
		logger: log,
	}
}
