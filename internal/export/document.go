// Package export renders a session's persisted data into downloadable transcripts.
package export

import (
	"sort"
	"strings"
	"time"

	"github.com/Jasonwill2004/ScribeAI/internal/models"
)

// Document is everything an export needs, read from the repository on demand.
type Document struct {
	Session models.Session
	Chunks  []models.Chunk
	Summary *models.Summary
}

// TranscriptLines returns the non-empty chunk texts in chunk-index order,
// prefixed with the speaker label when one is present.
func (d Document) TranscriptLines() []string {
	chunks := make([]models.Chunk, len(d.Chunks))
	copy(chunks, d.Chunks)
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })

	var lines []string
	for _, c := range chunks {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		if c.Speaker != "" {
			text = c.Speaker + ": " + text
		}
		lines = append(lines, text)
	}
	return lines
}

func (d Document) title() string {
	if d.Session.Title != "" {
		return d.Session.Title
	}
	return "Session " + d.Session.ID
}

// metadata returns the header rows shared by every export format.
func (d Document) metadata() [][2]string {
	rows := [][2]string{
		{"Session", d.Session.ID},
		{"User", d.Session.UserID},
		{"State", string(d.Session.State)},
		{"Started", formatTime(d.Session.StartedAt)},
	}
	if d.Session.EndedAt != nil {
		rows = append(rows, [2]string{"Ended", formatTime(*d.Session.EndedAt)})
	}
	if d.Session.DurationSec != nil {
		rows = append(rows, [2]string{"Duration", formatDuration(*d.Session.DurationSec)})
	}
	return rows
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

func formatDuration(sec float64) string {
	d := time.Duration(sec * float64(time.Second)).Round(time.Second)
	return d.String()
}
