package summarizer

import "context"

// Options selects which summary fields are requested and caps the content length.
type Options struct {
	MaxLength          int
	IncludeKeyPoints   bool
	IncludeActionItems bool
	IncludeTopics      bool
}

// Result is a structured summary. Fields that were not requested are nil.
type Result struct {
	Content     string
	KeyPoints   []string
	ActionItems []string
	Topics      []string
}

// Summarizer turns a full transcript into a structured summary.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string, opts Options) (Result, error)
	Backend() string
}

// Backend is a summarization capability. Exactly one is selected at startup.
type Backend interface {
	Name() string
	Generate(ctx context.Context, transcript string, opts Options) (Result, error)
}
