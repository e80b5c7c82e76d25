// Package models holds the entities persisted for a recording session.
package models

import (
	"strings"
	"time"
)

type SessionState string

const (
	SessionRecording  SessionState = "recording"
	SessionPaused     SessionState = "paused"
	SessionProcessing SessionState = "processing"
	SessionCompleted  SessionState = "completed"
)

func (s SessionState) Valid() bool {
	switch s {
	case SessionRecording, SessionPaused, SessionProcessing, SessionCompleted:
		return true
	}
	return false
}

// Session is one recording from start to completion.
type Session struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Title       string       `json:"title,omitempty"`
	StartedAt   time.Time    `json:"startedAt"`
	EndedAt     *time.Time   `json:"endedAt,omitempty"`
	DurationSec *float64     `json:"durationSec,omitempty"`
	State       SessionState `json:"state"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Chunk is the metadata row of one uploaded audio fragment.
// Text stays empty until the post-recording transcription pass.
type Chunk struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	ChunkIndex int       `json:"chunkIndex"`
	Text       string    `json:"text"`
	Speaker    string    `json:"speaker,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	CreatedAt  time.Time `json:"createdAt"`
}

const (
	// FallbackMarker prefixes summaries substituted after a summarization failure.
	FallbackMarker = "[FALLBACK SUMMARY]"
	// StubMarker prefixes summaries produced without a configured backend.
	StubMarker = "[STUB SUMMARY]"
	// TranscriptUnavailable replaces the transcript when transcription fails.
	TranscriptUnavailable = "[Transcription unavailable]"
)

// Summary is the single derived summary of a session.
type Summary struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	Content     string    `json:"content"`
	KeyPoints   []string  `json:"keyPoints"`
	ActionItems []string  `json:"actionItems"`
	Topics      []string  `json:"topics"`
	CreatedAt   time.Time `json:"createdAt"`
}

// IsFallback reports whether the summary is a degraded placeholder.
func (s *Summary) IsFallback() bool {
	return strings.HasPrefix(s.Content, FallbackMarker)
}
