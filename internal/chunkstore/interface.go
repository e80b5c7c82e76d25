package chunkstore

import "context"

// Location identifies one stored chunk file.
type Location struct {
	SessionID  string
	ChunkIndex int
	Path       string
	Format     string
}

// Store persists raw audio fragments keyed by (session, index).
type Store interface {
	EnsureArea(ctx context.Context, sessionID string) (string, error)
	WriteChunk(ctx context.Context, sessionID string, chunkIndex int, data []byte) (Location, error)
	ListChunksOrdered(ctx context.Context, sessionID string) ([]Location, error)
	ReclaimArea(ctx context.Context, sessionID string)
}
