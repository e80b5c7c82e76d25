package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Jasonwill2004/ScribeAI/internal/logger"
	"github.com/Jasonwill2004/ScribeAI/internal/models"
)

func openTestRepo(t *testing.T) *implRepository {
	t.Helper()
	repo, err := Open(context.Background(), ":memory:", logger.Discard())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo.(*implRepository)
}

func createSession(t *testing.T, repo Repository, id string) models.Session {
	t.Helper()
	now := time.Now()
	s := models.Session{
		ID:        id,
		UserID:    "u1",
		Title:     "Weekly",
		StartedAt: now,
		State:     models.SessionRecording,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateSession(context.Background(), s); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	return s
}

func countRows(t *testing.T, repo *implRepository, query string, args ...any) int {
	t.Helper()
	var n int
	if err := repo.db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestSessionRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	want := createSession(t, repo, "s1")

	got, err := repo.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.UserID != "u1" || got.Title != "Weekly" || got.State != models.SessionRecording {
		t.Errorf("GetSession() = %+v", got)
	}
	if d := got.StartedAt.Sub(want.StartedAt); d > time.Millisecond || d < -time.Millisecond {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, want.StartedAt)
	}
	if got.EndedAt != nil || got.DurationSec != nil {
		t.Error("EndedAt and DurationSec should be nil for a new session")
	}

	if _, err := repo.GetSession(ctx, "missing"); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("GetSession(missing) error = %v, want ErrSessionNotFound", err)
	}
}

func TestGetSessionRejectsUnknownState(t *testing.T) {
	repo := openTestRepo(t)
	createSession(t, repo, "s1")

	if _, err := repo.db.Exec(`UPDATE sessions SET state = 'archived' WHERE id = ?`, "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetSession(context.Background(), "s1"); err == nil {
		t.Error("GetSession() with unknown state should fail")
	}
}

func TestTransitionSession(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	createSession(t, repo, "s1")

	firstEnd := time.Now().Add(-time.Minute)
	if err := repo.TransitionSession(ctx, "s1", models.SessionRecording, models.SessionProcessing,
		SessionUpdate{EndedAt: &firstEnd}); err != nil {
		t.Fatalf("TransitionSession() error = %v", err)
	}

	// A stale writer loses.
	err := repo.TransitionSession(ctx, "s1", models.SessionRecording, models.SessionPaused, SessionUpdate{})
	if !errors.Is(err, models.ErrStateConflict) {
		t.Errorf("stale TransitionSession() error = %v, want ErrStateConflict", err)
	}

	laterEnd := time.Now()
	duration := 42.5
	if err := repo.TransitionSession(ctx, "s1", models.SessionProcessing, models.SessionCompleted,
		SessionUpdate{EndedAt: &laterEnd, DurationSec: &duration}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.State != models.SessionCompleted {
		t.Errorf("State = %s, want completed", got.State)
	}
	if got.EndedAt == nil || got.EndedAt.Sub(firstEnd).Abs() > time.Millisecond {
		t.Errorf("EndedAt = %v, want first stamp %v", got.EndedAt, firstEnd)
	}
	if got.DurationSec == nil || *got.DurationSec != 42.5 {
		t.Errorf("DurationSec = %v, want 42.5", got.DurationSec)
	}

	err = repo.TransitionSession(ctx, "missing", models.SessionRecording, models.SessionPaused, SessionUpdate{})
	if !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("TransitionSession(missing) error = %v, want ErrSessionNotFound", err)
	}
}

func TestListSessionsByState(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	createSession(t, repo, "s1")
	createSession(t, repo, "s2")
	if err := repo.TransitionSession(ctx, "s2", models.SessionRecording, models.SessionProcessing, SessionUpdate{}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.ListSessionsByState(ctx, models.SessionProcessing)
	if err != nil {
		t.Fatalf("ListSessionsByState() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "s2" {
		t.Errorf("ListSessionsByState() = %v, want [s2]", got)
	}
}

func TestUpsertChunkIsIdempotent(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	createSession(t, repo, "s1")

	now := time.Now()
	first, err := repo.UpsertChunk(ctx, models.Chunk{ID: "c1", SessionID: "s1", ChunkIndex: 0, Timestamp: now, CreatedAt: now})
	if err != nil {
		t.Fatalf("UpsertChunk() error = %v", err)
	}
	second, err := repo.UpsertChunk(ctx, models.Chunk{ID: "c2", SessionID: "s1", ChunkIndex: 0, Speaker: "Alice", Timestamp: now, CreatedAt: now})
	if err != nil {
		t.Fatalf("UpsertChunk() retry error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("re-sent chunk id = %s, want original %s", second.ID, first.ID)
	}
	if n := countRows(t, repo, `SELECT COUNT(*) FROM chunks WHERE session_id = ? AND chunk_index = 0`, "s1"); n != 1 {
		t.Errorf("rows for index 0 = %d, want 1", n)
	}

	chunks, err := repo.ListChunks(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 || chunks[0].Speaker != "Alice" {
		t.Errorf("ListChunks() = %+v, want one chunk with speaker Alice", chunks)
	}
}

func TestUpsertChunkRequiresSession(t *testing.T) {
	repo := openTestRepo(t)
	now := time.Now()
	_, err := repo.UpsertChunk(context.Background(), models.Chunk{ID: "c1", SessionID: "ghost", Timestamp: now, CreatedAt: now})
	if err == nil {
		t.Error("UpsertChunk() should fail the foreign key check")
	}
}

func TestListChunksOrderAndText(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	createSession(t, repo, "s1")

	now := time.Now()
	for i, idx := range []int{10, 2, 1} {
		c := models.Chunk{ID: string(rune('a' + i)), SessionID: "s1", ChunkIndex: idx, Timestamp: now, CreatedAt: now}
		if _, err := repo.UpsertChunk(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.UpdateChunkText(ctx, "s1", 1, "hello"); err != nil {
		t.Fatalf("UpdateChunkText() error = %v", err)
	}
	if err := repo.UpdateChunkText(ctx, "s1", 7, "nope"); err == nil {
		t.Error("UpdateChunkText() on a missing index should fail")
	}

	chunks, err := repo.ListChunks(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	var order []int
	for _, c := range chunks {
		order = append(order, c.ChunkIndex)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 10 {
		t.Errorf("ListChunks() order = %v, want [1 2 10]", order)
	}
	if chunks[0].Text != "hello" {
		t.Errorf("chunk 1 text = %q, want hello", chunks[0].Text)
	}
}

func TestSaveSummaryKeepsOneRow(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	createSession(t, repo, "s1")

	first, err := repo.SaveSummary(ctx, models.Summary{
		ID: "sum1", SessionID: "s1", Content: "first",
		KeyPoints: []string{"a"}, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("SaveSummary() error = %v", err)
	}
	second, err := repo.SaveSummary(ctx, models.Summary{
		ID: "sum2", SessionID: "s1", Content: models.FallbackMarker + " second",
		ActionItems: []string{"review"}, Topics: []string{"x", "y"}, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("summary id = %s, want %s", second.ID, first.ID)
	}
	if n := countRows(t, repo, `SELECT COUNT(*) FROM summaries WHERE session_id = ?`, "s1"); n != 1 {
		t.Errorf("summary rows = %d, want 1", n)
	}

	got, err := repo.GetSummary(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if !got.IsFallback() {
		t.Errorf("Content = %q, want fallback", got.Content)
	}
	if len(got.KeyPoints) != 0 || len(got.ActionItems) != 1 || len(got.Topics) != 2 {
		t.Errorf("lists = %v %v %v", got.KeyPoints, got.ActionItems, got.Topics)
	}

	if _, err := repo.GetSummary(ctx, "missing"); !errors.Is(err, models.ErrSummaryNotFound) {
		t.Errorf("GetSummary(missing) error = %v, want ErrSummaryNotFound", err)
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	createSession(t, repo, "s1")
	createSession(t, repo, "s2")

	now := time.Now()
	if _, err := repo.UpsertChunk(ctx, models.Chunk{ID: "c1", SessionID: "s1", Timestamp: now, CreatedAt: now}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.SaveSummary(ctx, models.Summary{ID: "m1", SessionID: "s1", Content: "x", CreatedAt: now}); err != nil {
		t.Fatal(err)
	}

	if err := repo.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if n := countRows(t, repo, `SELECT COUNT(*) FROM chunks`); n != 0 {
		t.Errorf("chunks left = %d, want 0", n)
	}
	if n := countRows(t, repo, `SELECT COUNT(*) FROM summaries`); n != 0 {
		t.Errorf("summaries left = %d, want 0", n)
	}
	if _, err := repo.GetSession(ctx, "s2"); err != nil {
		t.Errorf("other session should survive: %v", err)
	}
	if err := repo.DeleteSession(ctx, "s1"); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("second DeleteSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestOpenFile(t *testing.T) {
	path := t.TempDir() + "/nested/scribe.sqlite"
	repo, err := Open(context.Background(), path, logger.Discard())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	createSession(t, repo, "s1")
	repo.Close()

	// Schema creation is idempotent and data survives reopen.
	repo, err = Open(context.Background(), path, logger.Discard())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer repo.Close()
	if _, err := repo.GetSession(context.Background(), "s1"); err != nil {
		t.Errorf("GetSession() after reopen error = %v", err)
	}
}
