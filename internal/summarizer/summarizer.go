package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Jasonwill2004/ScribeAI/internal/models"
)

const previewRunes = 500

func (s *implSummarizer) Backend() string {
	return s.backend.Name()
}

// Summarize calls the backend once and trims the result to the requested options.
func (s *implSummarizer) Summarize(ctx context.Context, transcript string, opts Options) (Result, error) {
	startTime := time.Now()

	res, err := s.backend.Generate(ctx, transcript, opts)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s backend: %v", models.ErrSummarizationFailed, s.backend.Name(), err)
	}

	res = applyOptions(res, opts)
	s.logger.Info(ctx, "Summary generated by %s in %s (%d chars)",
		s.backend.Name(), time.Since(startTime).Round(time.Millisecond), utf8.RuneCountInString(res.Content))
	return res, nil
}

func applyOptions(res Result, opts Options) Result {
	if opts.MaxLength > 0 {
		res.Content = truncateRunes(res.Content, opts.MaxLength)
	}
	res.KeyPoints = keepIf(opts.IncludeKeyPoints, res.KeyPoints)
	res.ActionItems = keepIf(opts.IncludeActionItems, res.ActionItems)
	res.Topics = keepIf(opts.IncludeTopics, res.Topics)
	return res
}

func keepIf(requested bool, items []string) []string {
	if !requested {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Fallback builds the deterministic summary stored when summarization fails.
// Its content always starts with models.FallbackMarker.
func Fallback(transcript string) Result {
	preview := strings.TrimSpace(transcript)
	if utf8.RuneCountInString(preview) > previewRunes {
		preview = truncateRunes(preview, previewRunes) + "..."
	}
	if preview == "" {
		preview = "(empty transcript)"
	}

	return Result{
		Content:     models.FallbackMarker + " Summary generation failed. Transcript preview: " + preview,
		KeyPoints:   []string{"Automated summary unavailable for this session"},
		ActionItems: []string{"Review the full transcript manually"},
		Topics:      []string{},
	}
}
