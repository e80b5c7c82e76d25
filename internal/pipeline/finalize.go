package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Jasonwill2004/ScribeAI/internal/metrics"
	"github.com/Jasonwill2004/ScribeAI/internal/models"
	"github.com/Jasonwill2004/ScribeAI/internal/repository"
	"github.com/Jasonwill2004/ScribeAI/internal/summarizer"
)

// persistTimeout bounds the completion writes, which run even after the finalize budget is spent.
const persistTimeout = 30 * time.Second

// outcome is what the finalize steps produced before completion is committed.
type outcome struct {
	transcript string
	durationMs int64
	summary    *summarizer.Result
	fallback   bool
}

// launch starts finalize for sess in the background unless one is already running.
func (p *implPipeline) launch(sess models.Session, n Notifier) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn(p.baseCtx, "Shutting down, finalize of session=%s left for recovery", sess.ID)
		return
	}
	if p.inflight[sess.ID] {
		p.mu.Unlock()
		p.logger.Warn(p.baseCtx, "Finalize already running for session=%s", sess.ID)
		return
	}
	p.inflight[sess.ID] = true
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer func() {
			p.mu.Lock()
			delete(p.inflight, sess.ID)
			delete(p.completed, sess.ID)
			p.mu.Unlock()
		}()
		p.finalize(sess, n)
	}()
}

// finalize runs the post-recording sequence. Whatever happens the session ends in
// completed with a summary row, except when shutdown abandons it mid-way.
func (p *implPipeline) finalize(sess models.Session, n Notifier) {
	startTime := time.Now()

	if p.sem.full() {
		p.logger.Info(p.baseCtx, "Waiting for a finalize slot session=%s", sess.ID)
	}
	if err := p.sem.acquire(p.baseCtx); err != nil {
		p.logger.Warn(p.baseCtx, "Finalize of session=%s abandoned before start: %v", sess.ID, err)
		return
	}
	defer p.sem.release()

	p.metrics.ActiveFinalizers.Inc()
	defer p.metrics.ActiveFinalizers.Dec()

	ctx, cancel := context.WithTimeout(p.baseCtx, p.cfg.FinalizeTimeout)
	defer cancel()

	var out outcome
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(ctx, "Finalize panic session=%s: %v", sess.ID, r)
			p.complete(sess, n, out, fmt.Errorf("internal error during processing: %v", r), startTime)
		}
	}()

	p.logger.Info(ctx, "Finalize started session=%s", sess.ID)

	err := p.runSteps(ctx, sess, n, &out)
	if err != nil && p.baseCtx.Err() != nil {
		p.logger.Warn(ctx, "Finalize of session=%s interrupted by shutdown, left in processing: %v", sess.ID, err)
		return
	}
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("processing exceeded %s: %w", p.cfg.FinalizeTimeout, err)
	}

	p.complete(sess, n, out, err, startTime)
}

// runSteps lists, aggregates, waits for, transcribes and summarizes the session audio.
// Recoverable stage failures are absorbed into out; the returned error forces completion.
func (p *implPipeline) runSteps(ctx context.Context, sess models.Session, n Notifier, out *outcome) error {
	locs, err := p.store.ListChunksOrdered(ctx, sess.ID)
	if err != nil {
		p.metrics.RecordStageFailure(metrics.StageList)
		return fmt.Errorf("list chunks: %w", err)
	}
	if len(locs) == 0 {
		p.metrics.RecordStageFailure(metrics.StageList)
		return fmt.Errorf("%w: session %s", models.ErrNoChunksFound, sess.ID)
	}

	if err := os.MkdirAll(p.cfg.TempDir, 0755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	combinedPath := filepath.Join(p.cfg.TempDir, sess.ID+"-combined"+filepath.Ext(locs[0].Path))
	defer p.cleanupTempFile(ctx, combinedPath)

	paths := make([]string, len(locs))
	for i, loc := range locs {
		paths[i] = loc.Path
	}
	agg, err := p.aggregator.Aggregate(ctx, paths, combinedPath)
	if err != nil {
		p.metrics.RecordStageFailure(metrics.StageAggregate)
		return fmt.Errorf("aggregate: %w", err)
	}
	if agg.Degraded {
		p.metrics.DegradedAggregation.Inc()
	}

	if _, err := p.watcher.WaitStable(ctx, agg.Path); err != nil {
		p.metrics.RecordStageFailure(metrics.StageStability)
		return fmt.Errorf("wait for aggregated audio: %w", err)
	}

	transcribed := true
	tr, err := p.transcriber.Transcribe(ctx, agg.Path, p.cfg.Transcription)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("transcribe: %w", ctx.Err())
		}
		p.metrics.RecordStageFailure(metrics.StageTranscribe)
		p.logger.Error(ctx, "Transcription failed session=%s: %v", sess.ID, err)
		n.Error(sess.ID, err)
		transcribed = false
		tr.Text = models.TranscriptUnavailable
	}
	out.durationMs = tr.DurationMs

	// The whole-session transcript lives on the first chunk row.
	first := locs[0].ChunkIndex
	if err := p.repo.UpdateChunkText(ctx, sess.ID, first, tr.Text); err != nil {
		p.metrics.RecordStageFailure(metrics.StagePersist)
		out.transcript = tr.Text
		return fmt.Errorf("store transcript: %w", err)
	}
	n.Transcript(models.Chunk{SessionID: sess.ID, ChunkIndex: first, Text: tr.Text, Timestamp: time.Now()})

	chunks, err := p.repo.ListChunks(ctx, sess.ID)
	if err != nil {
		out.transcript = tr.Text
		return fmt.Errorf("read transcript: %w", err)
	}
	out.transcript = joinTranscript(chunks)

	if !transcribed {
		fallback := summarizer.Fallback(out.transcript)
		out.summary, out.fallback = &fallback, true
		return nil
	}

	summary, err := p.summarizer.Summarize(ctx, out.transcript, p.cfg.Summary)
	if err != nil {
		p.metrics.RecordStageFailure(metrics.StageSummarize)
		p.logger.Warn(ctx, "Summarization failed session=%s, using fallback: %v", sess.ID, err)
		summary = summarizer.Fallback(out.transcript)
		out.fallback = true
	}
	out.summary = &summary
	return nil
}

// complete persists the summary, moves the session to completed and emits the
// terminal notifications. failure, when set, is reported and forces a fallback summary.
func (p *implPipeline) complete(sess models.Session, n Notifier, out outcome, failure error, startTime time.Time) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(p.baseCtx), persistTimeout)
	defer cancel()

	label := metrics.OutcomeSummarized
	if failure != nil {
		p.logger.Error(ctx, "Finalize failed session=%s, forcing completion: %v", sess.ID, failure)
		n.Error(sess.ID, failure)
		label = metrics.OutcomeForced
		if out.summary == nil {
			fallback := summarizer.Fallback(out.transcript)
			out.summary, out.fallback = &fallback, true
		}
	} else if out.fallback {
		label = metrics.OutcomeFallback
	}

	now := time.Now()
	saved, err := p.repo.SaveSummary(ctx, models.Summary{
		ID:          newID(),
		SessionID:   sess.ID,
		Content:     out.summary.Content,
		KeyPoints:   out.summary.KeyPoints,
		ActionItems: out.summary.ActionItems,
		Topics:      out.summary.Topics,
		CreatedAt:   now,
	})
	if err != nil {
		p.metrics.RecordStageFailure(metrics.StagePersist)
		p.logger.Error(ctx, "Failed to save summary session=%s: %v", sess.ID, err)
		n.Error(sess.ID, fmt.Errorf("save summary: %w", err))
		saved = models.Summary{
			SessionID:   sess.ID,
			Content:     out.summary.Content,
			KeyPoints:   out.summary.KeyPoints,
			ActionItems: out.summary.ActionItems,
			Topics:      out.summary.Topics,
			CreatedAt:   now,
		}
	}

	duration := sessionDuration(sess, out.durationMs, now)
	if err := p.markCompleted(ctx, sess.ID, now, duration); err != nil {
		p.logger.Error(ctx, "Failed to mark session=%s completed: %v", sess.ID, err)
		n.Error(sess.ID, fmt.Errorf("mark completed: %w", err))
	}

	n.Status(sess.ID, models.SessionCompleted)
	if p.claimCompletion(sess.ID) {
		n.Completed(Completion{
			SessionID:         sess.ID,
			Summary:           saved,
			DownloadReference: DownloadReference(sess.ID),
			Timestamp:         now,
		})
	}

	p.store.ReclaimArea(ctx, sess.ID)
	p.metrics.RecordSessionCompleted(label, time.Since(startTime).Seconds())
	p.logger.Info(ctx, "Session completed session=%s outcome=%s in %s",
		sess.ID, label, time.Since(startTime).Round(time.Millisecond))
}

func (p *implPipeline) markCompleted(ctx context.Context, sessionID string, endedAt time.Time, durationSec float64) error {
	unlock := p.locks.lock(sessionID)
	defer unlock()

	return p.repo.TransitionSession(ctx, sessionID, models.SessionProcessing, models.SessionCompleted,
		repository.SessionUpdate{EndedAt: &endedAt, DurationSec: &durationSec})
}

// claimCompletion returns true the first time it is called for sessionID during
// one finalize run. A second call happens only when complete itself panics.
func (p *implPipeline) claimCompletion(sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.completed[sessionID] {
		return false
	}
	p.completed[sessionID] = true
	return true
}

// sessionDuration prefers the decoded audio length over wall-clock time.
func sessionDuration(sess models.Session, durationMs int64, now time.Time) float64 {
	if durationMs > 0 {
		return float64(durationMs) / 1000
	}
	end := now
	if sess.EndedAt != nil {
		end = *sess.EndedAt
	}
	return end.Sub(sess.StartedAt).Seconds()
}

// joinTranscript concatenates the non-empty chunk texts in index order.
func joinTranscript(chunks []models.Chunk) string {
	var parts []string
	for _, c := range chunks {
		if text := strings.TrimSpace(c.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// RecoverProcessing relaunches finalize for every session persisted in processing.
// Notifications go to the log since no client is attached.
func (p *implPipeline) RecoverProcessing(ctx context.Context) (int, error) {
	sessions, err := p.repo.ListSessionsByState(ctx, models.SessionProcessing)
	if err != nil {
		return 0, fmt.Errorf("list processing sessions: %w", err)
	}

	n := LogNotifier(p.logger)
	for _, sess := range sessions {
		p.logger.Info(ctx, "Recovering finalize for session=%s", sess.ID)
		p.launch(sess, n)
	}
	return len(sessions), nil
}

func (p *implPipeline) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	running := len(p.inflight)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	if running > 0 {
		p.logger.Info(ctx, "Waiting for %d finalize sequence(s) to finish", running)
	}

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
	}

	p.cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
	return fmt.Errorf("finalize work abandoned at shutdown: %w", ctx.Err())
}
