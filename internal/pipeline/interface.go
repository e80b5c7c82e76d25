package pipeline

import (
	"context"
	"time"

	"github.com/Jasonwill2004/ScribeAI/internal/export"
	"github.com/Jasonwill2004/ScribeAI/internal/models"
)

// StartRequest opens a new recording session.
type StartRequest struct {
	UserID string
	Title  string
}

// ChunkRequest carries one uploaded audio fragment.
type ChunkRequest struct {
	SessionID  string
	ChunkIndex int
	Data       []byte
	Speaker    string
}

// Completion is the payload of the single terminal notification of a session.
type Completion struct {
	SessionID         string
	Summary           models.Summary
	DownloadReference string
	Timestamp         time.Time
}

// Notifier receives the notifications produced while serving one request.
// It is bound to the calling connection and must not block.
type Notifier interface {
	Status(sessionID string, state models.SessionState)
	Transcript(chunk models.Chunk)
	Completed(c Completion)
	Error(sessionID string, err error)
}

// Pipeline drives a session from start through finalize to completed.
type Pipeline interface {
	Start(ctx context.Context, req StartRequest, n Notifier) (models.Session, error)
	ChunkArrived(ctx context.Context, req ChunkRequest, n Notifier) (models.Chunk, error)
	Pause(ctx context.Context, sessionID string, n Notifier) (models.Session, error)
	Resume(ctx context.Context, sessionID string, n Notifier) (models.Session, error)
	// End moves the session to processing and finalizes it in the background.
	End(ctx context.Context, sessionID string, n Notifier) (models.Session, error)

	Session(ctx context.Context, sessionID string) (models.Session, error)
	Export(ctx context.Context, sessionID string) (export.Document, error)
	Delete(ctx context.Context, sessionID string) error

	// RecoverProcessing restarts finalize for sessions left in processing by a previous run.
	RecoverProcessing(ctx context.Context) (int, error)
	// Shutdown stops accepting finalize work and waits for running ones until ctx expires.
	Shutdown(ctx context.Context) error
}
