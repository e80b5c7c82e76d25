package transcriber

import "context"

// Options selects the spoken language ("auto" to detect) and the task
// ("transcribe" or "translate" to English).
type Options struct {
	Language string
	Task     string
}

type Result struct {
	Text       string
	DurationMs int64
}

// Transcriber turns one audio file into text. Implementations do not retry.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (Result, error)
}
