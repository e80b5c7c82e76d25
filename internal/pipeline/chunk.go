package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Jasonwill2004/ScribeAI/internal/models"
	"github.com/Jasonwill2004/ScribeAI/internal/session"
)

// ChunkArrived stores one fragment. Bytes are written before the metadata row,
// and nothing is written unless the session is recording.
func (p *implPipeline) ChunkArrived(ctx context.Context, req ChunkRequest, n Notifier) (models.Chunk, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return models.Chunk{}, fmt.Errorf("%w: sessionId is required", models.ErrValidation)
	}
	if req.ChunkIndex < 0 {
		return models.Chunk{}, fmt.Errorf("%w: chunkIndex must be >= 0, got %d", models.ErrValidation, req.ChunkIndex)
	}
	if len(req.Data) == 0 {
		return models.Chunk{}, fmt.Errorf("%w: audioData is empty", models.ErrValidation)
	}

	unlock := p.locks.lock(req.SessionID)
	defer unlock()

	sess, err := p.repo.GetSession(ctx, req.SessionID)
	if err != nil {
		return models.Chunk{}, err
	}
	if session.IsTerminal(sess.State) {
		return models.Chunk{}, fmt.Errorf("%w: session %s is already %s",
			models.ErrChunkRejected, req.SessionID, sess.State)
	}
	if !session.CanAcceptChunks(sess.State) {
		return models.Chunk{}, fmt.Errorf("%w: not recording (session %s is %s)",
			models.ErrChunkRejected, req.SessionID, sess.State)
	}

	loc, err := p.store.WriteChunk(ctx, req.SessionID, req.ChunkIndex, req.Data)
	if err != nil {
		return models.Chunk{}, err
	}

	now := time.Now()
	chunk, err := p.repo.UpsertChunk(ctx, models.Chunk{
		ID:         newID(),
		SessionID:  req.SessionID,
		ChunkIndex: req.ChunkIndex,
		Speaker:    strings.TrimSpace(req.Speaker),
		Timestamp:  now,
		CreatedAt:  now,
	})
	if err != nil {
		return models.Chunk{}, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}

	p.metrics.RecordChunk(len(req.Data))
	p.logger.Debug(ctx, "Chunk stored session=%s index=%d format=%s bytes=%d",
		req.SessionID, req.ChunkIndex, loc.Format, len(req.Data))
	return chunk, nil
}
