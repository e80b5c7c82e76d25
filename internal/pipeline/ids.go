package pipeline

import (
	"fmt"

	"github.com/google/uuid"
)

// newID returns a time-ordered UUIDv7, falling back to v4 if the clock source fails.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// DownloadReference is the HTTP path serving the transcript export of a session.
func DownloadReference(sessionID string) string {
	return fmt.Sprintf("/api/sessions/%s/transcript", sessionID)
}
