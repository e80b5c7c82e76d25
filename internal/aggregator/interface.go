package aggregator

import "context"

// Result describes the produced artifact.
type Result struct {
	Path string
	Size int64
	// Degraded is set when the output came from raw byte concatenation.
	Degraded bool
}

// Aggregator joins ordered chunk files into one decodable audio file.
type Aggregator interface {
	Aggregate(ctx context.Context, orderedChunkPaths []string, outputPath string) (Result, error)
}
