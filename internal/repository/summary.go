package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Jasonwill2004/ScribeAI/internal/models"
)

func (r *implRepository) SaveSummary(ctx context.Context, s models.Summary) (models.Summary, error) {
	keyPoints, err := encodeList(s.KeyPoints)
	if err != nil {
		return models.Summary{}, err
	}
	actionItems, err := encodeList(s.ActionItems)
	if err != nil {
		return models.Summary{}, err
	}
	topics, err := encodeList(s.Topics)
	if err != nil {
		return models.Summary{}, err
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO summaries (id, session_id, content, key_points, action_items, topics, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			content = excluded.content,
			key_points = excluded.key_points,
			action_items = excluded.action_items,
			topics = excluded.topics
		RETURNING id
	`, s.ID, s.SessionID, s.Content, keyPoints, actionItems, topics, toUnix(s.CreatedAt)).Scan(&s.ID)
	if err != nil {
		return models.Summary{}, fmt.Errorf("save summary: %w", err)
	}
	return s, nil
}

func (r *implRepository) GetSummary(ctx context.Context, sessionID string) (models.Summary, error) {
	var s models.Summary
	var keyPoints, actionItems, topics string
	var createdAt float64

	err := r.db.QueryRowContext(ctx, `
		SELECT id, session_id, content, key_points, action_items, topics, created_at
		FROM summaries
		WHERE session_id = ?
	`, sessionID).Scan(&s.ID, &s.SessionID, &s.Content, &keyPoints, &actionItems, &topics, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Summary{}, fmt.Errorf("%w: session %s", models.ErrSummaryNotFound, sessionID)
	}
	if err != nil {
		return models.Summary{}, fmt.Errorf("query summary: %w", err)
	}

	if s.KeyPoints, err = decodeList(keyPoints); err != nil {
		return models.Summary{}, err
	}
	if s.ActionItems, err = decodeList(actionItems); err != nil {
		return models.Summary{}, err
	}
	if s.Topics, err = decodeList(topics); err != nil {
		return models.Summary{}, err
	}
	s.CreatedAt = timeFromUnix(createdAt)
	return s, nil
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(data), nil
}

func decodeList(raw string) ([]string, error) {
	items := []string{}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return items, nil
}
