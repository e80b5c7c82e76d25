package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Jasonwill2004/ScribeAI/internal/models"
)

const sessionColumns = `id, user_id, title, started_at, ended_at, duration_sec, state, created_at, updated_at`

func (r *implRepository) CreateSession(ctx context.Context, s models.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.UserID, nullString(s.Title), toUnix(s.StartedAt), nullUnix(s.EndedAt),
		nullFloat(s.DurationSec), string(s.State), toUnix(s.CreatedAt), toUnix(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *implRepository) GetSession(ctx context.Context, id string) (models.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)

	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}
	return s, err
}

// ListSessionsByState returns sessions in state, oldest first.
func (r *implRepository) ListSessionsByState(ctx context.Context, state models.SessionState) ([]models.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE state = ?
		ORDER BY started_at ASC
	`, string(state))
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *implRepository) TransitionSession(ctx context.Context, id string, from, to models.SessionState, upd SessionUpdate) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET state = ?,
			updated_at = ?,
			ended_at = COALESCE(ended_at, ?),
			duration_sec = COALESCE(?, duration_sec)
		WHERE id = ? AND state = ?
	`, string(to), toUnix(time.Now()), nullUnix(upd.EndedAt), nullFloat(upd.DurationSec), id, string(from))
	if err != nil {
		return fmt.Errorf("update session state: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session state: %w", err)
	}
	if n == 1 {
		return nil
	}

	current, err := r.GetSession(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: session %s is %s, expected %s", models.ErrStateConflict, id, current.State, from)
}

// DeleteSession removes a session together with everything it owns.
func (r *implRepository) DeleteSession(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM summaries WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete summaries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	r.logger.Info(ctx, "Deleted session=%s", id)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (models.Session, error) {
	var s models.Session
	var state string
	var startedAt, createdAt, updatedAt float64
	var endedAt, durationSec sql.NullFloat64
	var title sql.NullString

	if err := row.Scan(&s.ID, &s.UserID, &title, &startedAt, &endedAt,
		&durationSec, &state, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s, err
		}
		return s, fmt.Errorf("scan session: %w", err)
	}

	s.State = models.SessionState(state)
	if !s.State.Valid() {
		return s, fmt.Errorf("scan session %s: unknown state %q", s.ID, state)
	}
	s.StartedAt = timeFromUnix(startedAt)
	s.CreatedAt = timeFromUnix(createdAt)
	s.UpdatedAt = timeFromUnix(updatedAt)
	if endedAt.Valid {
		t := timeFromUnix(endedAt.Float64)
		s.EndedAt = &t
	}
	if durationSec.Valid {
		d := durationSec.Float64
		s.DurationSec = &d
	}
	if title.Valid {
		s.Title = title.String
	}
	return s, nil
}
