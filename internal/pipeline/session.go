package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Jasonwill2004/ScribeAI/internal/export"
	"github.com/Jasonwill2004/ScribeAI/internal/models"
	"github.com/Jasonwill2004/ScribeAI/internal/repository"
	"github.com/Jasonwill2004/ScribeAI/internal/session"
)

// Start creates a new session in recording. Every call creates a distinct session.
func (p *implPipeline) Start(ctx context.Context, req StartRequest, n Notifier) (models.Session, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return models.Session{}, fmt.Errorf("%w: userId is required", models.ErrValidation)
	}

	now := time.Now()
	sess := models.Session{
		ID:        newID(),
		UserID:    userID,
		Title:     strings.TrimSpace(req.Title),
		StartedAt: now,
		State:     models.SessionRecording,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := p.store.EnsureArea(ctx, sess.ID); err != nil {
		return models.Session{}, fmt.Errorf("start session: %w", err)
	}
	if err := p.repo.CreateSession(ctx, sess); err != nil {
		p.store.ReclaimArea(ctx, sess.ID)
		return models.Session{}, fmt.Errorf("start session: %w", err)
	}

	p.metrics.SessionsStarted.Inc()
	p.logger.Info(ctx, "Session started session=%s user=%s", sess.ID, sess.UserID)
	n.Status(sess.ID, sess.State)
	return sess, nil
}

func (p *implPipeline) Pause(ctx context.Context, sessionID string, n Notifier) (models.Session, error) {
	return p.transition(ctx, sessionID, models.SessionPaused, n, nil)
}

func (p *implPipeline) Resume(ctx context.Context, sessionID string, n Notifier) (models.Session, error) {
	return p.transition(ctx, sessionID, models.SessionRecording, n, nil)
}

// End stamps endedAt, moves the session to processing and returns before finalize runs.
// Finalize is registered before the session lock is released so Delete cannot slip in between.
func (p *implPipeline) End(ctx context.Context, sessionID string, n Notifier) (models.Session, error) {
	return p.transition(ctx, sessionID, models.SessionProcessing, n, func(sess models.Session) {
		p.launch(sess, n)
	})
}

// transition applies one state change under the session lock: read, validate, conditional write.
// committed, when set, runs after the write while the lock is still held.
func (p *implPipeline) transition(ctx context.Context, sessionID string, to models.SessionState, n Notifier, committed func(models.Session)) (models.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return models.Session{}, fmt.Errorf("%w: sessionId is required", models.ErrValidation)
	}

	unlock := p.locks.lock(sessionID)
	defer unlock()

	sess, err := p.repo.GetSession(ctx, sessionID)
	if err != nil {
		return models.Session{}, err
	}

	from := sess.State
	if _, err := session.Transition(from, to); err != nil {
		return sess, fmt.Errorf("session %s: %w", sessionID, err)
	}

	var upd repository.SessionUpdate
	now := time.Now()
	if to == models.SessionProcessing {
		upd.EndedAt = &now
	}
	if err := p.repo.TransitionSession(ctx, sessionID, from, to, upd); err != nil {
		return sess, err
	}

	sess.State = to
	sess.UpdatedAt = now
	if upd.EndedAt != nil && sess.EndedAt == nil {
		sess.EndedAt = upd.EndedAt
	}

	p.logger.Info(ctx, "Session transition session=%s %s -> %s", sessionID, from, to)
	n.Status(sessionID, to)
	if committed != nil {
		committed(sess)
	}
	return sess, nil
}

func (p *implPipeline) Session(ctx context.Context, sessionID string) (models.Session, error) {
	return p.repo.GetSession(ctx, sessionID)
}

// Export gathers the persisted data of a session for rendering.
func (p *implPipeline) Export(ctx context.Context, sessionID string) (export.Document, error) {
	sess, err := p.repo.GetSession(ctx, sessionID)
	if err != nil {
		return export.Document{}, err
	}
	chunks, err := p.repo.ListChunks(ctx, sessionID)
	if err != nil {
		return export.Document{}, err
	}

	doc := export.Document{Session: sess, Chunks: chunks}
	summary, err := p.repo.GetSummary(ctx, sessionID)
	switch {
	case err == nil:
		doc.Summary = &summary
	case !errors.Is(err, models.ErrSummaryNotFound):
		return export.Document{}, err
	}
	return doc, nil
}

// Delete removes a session and its chunk area. Sessions being finalized are refused.
func (p *implPipeline) Delete(ctx context.Context, sessionID string) error {
	unlock := p.locks.lock(sessionID)
	defer unlock()

	p.mu.Lock()
	busy := p.inflight[sessionID]
	p.mu.Unlock()
	if busy {
		return fmt.Errorf("%w: session %s is being finalized", models.ErrStateConflict, sessionID)
	}

	if err := p.repo.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	p.store.ReclaimArea(ctx, sessionID)
	return nil
}
