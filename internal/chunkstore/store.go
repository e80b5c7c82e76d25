package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Jasonwill2004/ScribeAI/internal/models"
)

const chunkPrefix = "chunk_"

func (s *implStore) areaPath(sessionID string) (string, error) {
	if sessionID == "" || sessionID == "." || sessionID == ".." ||
		strings.ContainsAny(sessionID, `/\`) || strings.Contains(sessionID, "..") {
		return "", fmt.Errorf("%w: invalid session id %q", models.ErrValidation, sessionID)
	}
	return filepath.Join(s.root, sessionID), nil
}

// EnsureArea creates the session's directory if it does not exist.
func (s *implStore) EnsureArea(ctx context.Context, sessionID string) (string, error) {
	dir, err := s.areaPath(sessionID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: create area %s: %v", models.ErrStorageUnavailable, dir, err)
	}
	return dir, nil
}

// WriteChunk stores data as chunk_<index><ext>, replacing any earlier upload of the same index.
func (s *implStore) WriteChunk(ctx context.Context, sessionID string, chunkIndex int, data []byte) (Location, error) {
	if chunkIndex < 0 {
		return Location{}, fmt.Errorf("%w: negative chunk index %d", models.ErrValidation, chunkIndex)
	}

	dir, err := s.EnsureArea(ctx, sessionID)
	if err != nil {
		return Location{}, err
	}

	existing, err := s.scan(dir)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}

	ext := sniffExt(data)
	if ext == "" {
		ext = inheritedExt(existing)
	}

	dest := filepath.Join(dir, chunkPrefix+strconv.Itoa(chunkIndex)+ext)
	if err := writeAtomic(dir, dest, data); err != nil {
		return Location{}, fmt.Errorf("%w: %v", models.ErrWriteFailed, err)
	}

	for _, loc := range existing {
		if loc.ChunkIndex == chunkIndex && loc.Path != dest {
			if err := os.Remove(loc.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn(ctx, "session=%s failed to remove superseded chunk %s: %v", sessionID, loc.Path, err)
			}
		}
	}

	s.logger.Debug(ctx, "session=%s stored chunk %d (%d bytes, %s)", sessionID, chunkIndex, len(data), ext)

	return Location{
		SessionID:  sessionID,
		ChunkIndex: chunkIndex,
		Path:       dest,
		Format:     extFormats[ext],
	}, nil
}

// ListChunksOrdered returns the session's chunks sorted by numeric index.
func (s *implStore) ListChunksOrdered(ctx context.Context, sessionID string) ([]Location, error) {
	dir, err := s.areaPath(sessionID)
	if err != nil {
		return nil, err
	}

	locs, err := s.scan(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	for i := range locs {
		locs[i].SessionID = sessionID
	}
	return locs, nil
}

// ReclaimArea removes the session's directory. Failures are only logged.
func (s *implStore) ReclaimArea(ctx context.Context, sessionID string) {
	dir, err := s.areaPath(sessionID)
	if err != nil {
		s.logger.Warn(ctx, "Skipping reclaim: %v", err)
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		s.logger.Warn(ctx, "session=%s failed to reclaim chunk area %s: %v", sessionID, dir, err)
		return
	}
	s.logger.Debug(ctx, "session=%s reclaimed chunk area", sessionID)
}

// scan lists chunk files in dir ordered by index. A missing dir yields no chunks.
func (s *implStore) scan(dir string) ([]Location, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var locs []Location
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		index, ext, ok := parseChunkName(e.Name())
		if !ok {
			continue
		}
		locs = append(locs, Location{
			ChunkIndex: index,
			Path:       filepath.Join(dir, e.Name()),
			Format:     extFormats[ext],
		})
	}

	sort.SliceStable(locs, func(i, j int) bool {
		return locs[i].ChunkIndex < locs[j].ChunkIndex
	})
	return locs, nil
}

// parseChunkName extracts the index from "chunk_<n><ext>".
func parseChunkName(name string) (int, string, bool) {
	if !strings.HasPrefix(name, chunkPrefix) {
		return 0, "", false
	}
	ext := filepath.Ext(name)
	digits := strings.TrimSuffix(strings.TrimPrefix(name, chunkPrefix), ext)
	index, err := strconv.Atoi(digits)
	if err != nil || index < 0 {
		return 0, "", false
	}
	return index, ext, true
}

// inheritedExt picks the extension of chunk 0, the only fragment with a container header.
func inheritedExt(existing []Location) string {
	for _, loc := range existing {
		if loc.ChunkIndex == 0 {
			return filepath.Ext(loc.Path)
		}
	}
	return defaultExt
}

// writeAtomic writes to a temp file in dir and renames it over dest.
func writeAtomic(dir, dest string, data []byte) (err error) {
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
