package repository

import (
	"context"
	"time"

	"github.com/Jasonwill2004/ScribeAI/internal/models"
)

// SessionUpdate carries the optional fields written together with a state change.
// EndedAt is only applied while the stored value is still NULL.
type SessionUpdate struct {
	EndedAt     *time.Time
	DurationSec *float64
}

// Repository is the relational store of sessions, chunk metadata and summaries.
type Repository interface {
	CreateSession(ctx context.Context, s models.Session) error
	GetSession(ctx context.Context, id string) (models.Session, error)
	ListSessionsByState(ctx context.Context, state models.SessionState) ([]models.Session, error)
	// TransitionSession moves id from -> to only if the stored state is still from.
	// It returns models.ErrStateConflict when another writer got there first.
	TransitionSession(ctx context.Context, id string, from, to models.SessionState, upd SessionUpdate) error
	DeleteSession(ctx context.Context, id string) error

	// UpsertChunk inserts the metadata row for (SessionID, ChunkIndex) or refreshes
	// the existing one, returning the stored row.
	UpsertChunk(ctx context.Context, c models.Chunk) (models.Chunk, error)
	ListChunks(ctx context.Context, sessionID string) ([]models.Chunk, error)
	UpdateChunkText(ctx context.Context, sessionID string, chunkIndex int, text string) error

	// SaveSummary writes the single summary of a session, replacing any earlier one.
	SaveSummary(ctx context.Context, s models.Summary) (models.Summary, error)
	GetSummary(ctx context.Context, sessionID string) (models.Summary, error)

	Close() error
}
