package summarizer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Jasonwill2004/ScribeAI/internal/logger"
	"github.com/Jasonwill2004/ScribeAI/internal/models"
)

type fakeBackend struct {
	result Result
	err    error
}

func (f fakeBackend) Name() string { return "fake" }

func (f fakeBackend) Generate(ctx context.Context, transcript string, opts Options) (Result, error) {
	return f.result, f.err
}

func allOptions() Options {
	return Options{MaxLength: 2000, IncludeKeyPoints: true, IncludeActionItems: true, IncludeTopics: true}
}

func TestSummarizeAppliesOptions(t *testing.T) {
	backend := fakeBackend{result: Result{
		Content:     "abcdefghij",
		KeyPoints:   []string{"one", "  ", "two"},
		ActionItems: []string{"do it"},
		Topics:      []string{"planning"},
	}}
	s := New(backend, logger.Discard())

	tests := []struct {
		name        string
		opts        Options
		wantContent string
		wantKP      int
		wantAI      bool
		wantTopics  bool
	}{
		{"everything", allOptions(), "abcdefghij", 2, true, true},
		{"truncated", Options{MaxLength: 4, IncludeKeyPoints: true}, "abcd", 2, false, false},
		{"no lists", Options{}, "abcdefghij", 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Summarize(context.Background(), "transcript", tt.opts)
			if err != nil {
				t.Fatalf("Summarize() error = %v", err)
			}
			if res.Content != tt.wantContent {
				t.Errorf("Content = %q, want %q", res.Content, tt.wantContent)
			}
			if len(res.KeyPoints) != tt.wantKP {
				t.Errorf("KeyPoints = %v, want %d items", res.KeyPoints, tt.wantKP)
			}
			if (res.ActionItems != nil) != tt.wantAI {
				t.Errorf("ActionItems = %v, requested %v", res.ActionItems, tt.wantAI)
			}
			if (res.Topics != nil) != tt.wantTopics {
				t.Errorf("Topics = %v, requested %v", res.Topics, tt.wantTopics)
			}
		})
	}
}

func TestSummarizeWrapsBackendError(t *testing.T) {
	s := New(fakeBackend{err: errors.New("503 unavailable")}, logger.Discard())

	_, err := s.Summarize(context.Background(), "transcript", allOptions())
	if !errors.Is(err, models.ErrSummarizationFailed) {
		t.Errorf("Summarize() error = %v, want ErrSummarizationFailed", err)
	}
}

func TestStubBackend(t *testing.T) {
	s := New(NewStub(), logger.Discard())

	res, err := s.Summarize(context.Background(), "one two three", allOptions())
	if err != nil {
		t.Fatalf("stub should never fail: %v", err)
	}
	if !strings.HasPrefix(res.Content, models.StubMarker) {
		t.Errorf("Content = %q, want %s prefix", res.Content, models.StubMarker)
	}
	if !strings.Contains(res.Content, "3 words") {
		t.Errorf("Content = %q, want word count", res.Content)
	}
	if s.Backend() != "stub" {
		t.Errorf("Backend() = %q, want stub", s.Backend())
	}
}

func TestNewFromConfig(t *testing.T) {
	if got := NewFromConfig(GeminiConfig{}, logger.Discard()).Name(); got != "stub" {
		t.Errorf("no keys: backend = %q, want stub", got)
	}
	if got := NewFromConfig(GeminiConfig{APIKeys: []string{"k"}}, logger.Discard()).Name(); got != "gemini" {
		t.Errorf("with keys: backend = %q, want gemini", got)
	}
}

func TestFallback(t *testing.T) {
	long := strings.Repeat("é", 800)

	tests := []struct {
		name        string
		transcript  string
		wantPreview string
	}{
		{"short", "hello world", "hello world"},
		{"empty", "   ", "(empty transcript)"},
		{"long", long, strings.Repeat("é", 500) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Fallback(tt.transcript)
			sum := models.Summary{Content: res.Content}
			if !sum.IsFallback() {
				t.Errorf("Content = %q, want fallback marker", res.Content)
			}
			if !strings.HasSuffix(res.Content, tt.wantPreview) {
				t.Errorf("Content does not end with the expected preview (%d runes)", utf8.RuneCountInString(res.Content))
			}
			if len(res.KeyPoints) == 0 || len(res.ActionItems) == 0 {
				t.Error("fallback should carry key points and action items")
			}
		})
	}
}
