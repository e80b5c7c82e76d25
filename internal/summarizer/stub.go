package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/Jasonwill2004/ScribeAI/internal/models"
)

func (implStub) Name() string { return "stub" }

// Generate returns a labelled placeholder derived only from the transcript size.
func (implStub) Generate(ctx context.Context, transcript string, opts Options) (Result, error) {
	words := len(strings.Fields(transcript))
	return Result{
		Content:     fmt.Sprintf("%s No summarization backend is configured. The transcript contains %d words.", models.StubMarker, words),
		KeyPoints:   []string{fmt.Sprintf("Transcript length: %d words", words)},
		ActionItems: []string{"Configure a summarization backend for generated summaries"},
		Topics:      []string{},
	}, nil
}
