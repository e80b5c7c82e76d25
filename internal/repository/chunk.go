package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Jasonwill2004/ScribeAI/internal/models"
)

func (r *implRepository) UpsertChunk(ctx context.Context, c models.Chunk) (models.Chunk, error) {
	var createdAt float64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO chunks (id, session_id, chunk_index, text, speaker, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, chunk_index) DO UPDATE SET
			speaker = excluded.speaker,
			timestamp = excluded.timestamp
		RETURNING id, text, created_at
	`, c.ID, c.SessionID, c.ChunkIndex, c.Text, nullString(c.Speaker),
		toUnix(c.Timestamp), toUnix(c.CreatedAt)).Scan(&c.ID, &c.Text, &createdAt)
	if err != nil {
		return models.Chunk{}, fmt.Errorf("upsert chunk %d: %w", c.ChunkIndex, err)
	}
	c.CreatedAt = timeFromUnix(createdAt)
	return c, nil
}

// ListChunks returns the chunk rows of a session ordered by chunk index.
func (r *implRepository) ListChunks(ctx context.Context, sessionID string) ([]models.Chunk, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, chunk_index, text, speaker, timestamp, created_at
		FROM chunks
		WHERE session_id = ?
		ORDER BY chunk_index ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var c models.Chunk
		var speaker sql.NullString
		var timestamp, createdAt float64
		if err := rows.Scan(&c.ID, &c.SessionID, &c.ChunkIndex, &c.Text, &speaker,
			&timestamp, &createdAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.Speaker = speaker.String
		c.Timestamp = timeFromUnix(timestamp)
		c.CreatedAt = timeFromUnix(createdAt)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (r *implRepository) UpdateChunkText(ctx context.Context, sessionID string, chunkIndex int, text string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE chunks SET text = ? WHERE session_id = ? AND chunk_index = ?
	`, text, sessionID, chunkIndex)
	if err != nil {
		return fmt.Errorf("update chunk text: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update chunk text: no chunk %d in session %s", chunkIndex, sessionID)
	}
	return nil
}
