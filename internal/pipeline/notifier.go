package pipeline

import (
	"context"

	"github.com/Jasonwill2004/ScribeAI/internal/logger"
	"github.com/Jasonwill2004/ScribeAI/internal/models"
)

type logNotifier struct {
	logger logger.Logger
}

// LogNotifier returns a Notifier that only logs, for work with no attached client.
func LogNotifier(log logger.Logger) Notifier {
	return logNotifier{logger: log}
}

func (l logNotifier) Status(sessionID string, state models.SessionState) {
	l.logger.Debug(context.Background(), "status session=%s state=%s", sessionID, state)
}

func (l logNotifier) Transcript(chunk models.Chunk) {
	l.logger.Debug(context.Background(), "transcript session=%s chars=%d", chunk.SessionID, len(chunk.Text))
}

func (l logNotifier) Completed(c Completion) {
	l.logger.Info(context.Background(), "completed session=%s summary=%s", c.SessionID, c.Summary.ID)
}

func (l logNotifier) Error(sessionID string, err error) {
	l.logger.Warn(context.Background(), "error session=%s: %v", sessionID, err)
}
