package transport

import (
	"time"

	"github.com/Jasonwill2004/ScribeAI/internal/models"
	"github.com/Jasonwill2004/ScribeAI/internal/pipeline"
	"github.com/Jasonwill2004/ScribeAI/pkg/protocol"
)

// sessionNotifier turns pipeline notifications into event frames. A frame goes to
// the connection that made the request and to every live connection bound to the
// same session, so a client that reconnected during processing still hears the end.
type sessionNotifier struct {
	s      *implServer
	origin *conn
}

func (n sessionNotifier) push(sessionID, event string, data any) {
	frame, err := protocol.NewEvent(event, data)
	if err != nil {
		return
	}
	for _, c := range n.s.targets(sessionID, n.origin) {
		c.enqueue(frame)
	}
}

func (n sessionNotifier) Status(sessionID string, state models.SessionState) {
	n.push(sessionID, protocol.EventStatus, protocol.StatusPayload{
		Status:    string(state),
		SessionID: sessionID,
		Timestamp: protocol.Millis(time.Now()),
	})
}

func (n sessionNotifier) Transcript(chunk models.Chunk) {
	n.push(chunk.SessionID, protocol.EventTranscript, protocol.TranscriptPayload{
		SessionID:  chunk.SessionID,
		ChunkIndex: chunk.ChunkIndex,
		Text:       chunk.Text,
		Speaker:    chunk.Speaker,
		Timestamp:  protocol.Millis(chunk.Timestamp),
	})
}

func (n sessionNotifier) Completed(c pipeline.Completion) {
	n.push(c.SessionID, protocol.EventCompleted, protocol.CompletedPayload{
		SessionID:         c.SessionID,
		SummaryID:         c.Summary.ID,
		Summary:           c.Summary.Content,
		KeyPoints:         nonNil(c.Summary.KeyPoints),
		ActionItems:       nonNil(c.Summary.ActionItems),
		Topics:            nonNil(c.Summary.Topics),
		DownloadReference: c.DownloadReference,
		Timestamp:         protocol.Millis(c.Timestamp),
	})
}

func (n sessionNotifier) Error(sessionID string, err error) {
	n.push(sessionID, protocol.EventError, protocol.ErrorPayload{
		Message:   err.Error(),
		SessionID: sessionID,
		Timestamp: protocol.Millis(time.Now()),
	})
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
