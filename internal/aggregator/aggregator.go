package aggregator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Jasonwill2004/ScribeAI/internal/models"
)

// Aggregate writes orderedChunkPaths into outputPath.
// A single chunk is copied verbatim; several chunks are remuxed with the
// ffmpeg concat demuxer so no stream is re-encoded.
func (a *implAggregator) Aggregate(ctx context.Context, orderedChunkPaths []string, outputPath string) (Result, error) {
	if len(orderedChunkPaths) == 0 {
		return Result{}, models.ErrNoChunksToAggregate
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return Result{}, fmt.Errorf("%w: create output dir: %v", models.ErrAggregationFailed, err)
	}

	result := Result{Path: outputPath}

	if len(orderedChunkPaths) == 1 {
		a.logger.Debug(ctx, "Single chunk, copying: %s", orderedChunkPaths[0])
		if err := copyFile(orderedChunkPaths[0], outputPath); err != nil {
			return Result{}, fmt.Errorf("%w: copy single chunk: %v", models.ErrAggregationFailed, err)
		}
	} else if err := a.concatDemux(ctx, orderedChunkPaths, outputPath); err != nil {
		a.logger.Warn(ctx, "ffmpeg concat failed, falling back to raw byte concatenation "+
			"(audio after the first chunk may not decode): %v", err)
		os.Remove(outputPath)
		if err := concatBytes(orderedChunkPaths, outputPath); err != nil {
			return Result{}, fmt.Errorf("%w: byte concatenation: %v", models.ErrAggregationFailed, err)
		}
		result.Degraded = true
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: stat output: %v", models.ErrAggregationFailed, err)
	}
	if info.Size() == 0 {
		os.Remove(outputPath)
		return Result{}, fmt.Errorf("%w: output %s is empty", models.ErrAggregationFailed, outputPath)
	}
	result.Size = info.Size()

	a.logger.Info(ctx, "Aggregated %d chunks into %s (%d bytes, degraded=%t)",
		len(orderedChunkPaths), outputPath, result.Size, result.Degraded)
	return result, nil
}

// concatDemux feeds a file-list manifest to ffmpeg and stream-copies into outputPath.
func (a *implAggregator) concatDemux(ctx context.Context, paths []string, outputPath string) error {
	manifest, err := writeManifest(a.tempDir, paths)
	if err != nil {
		return err
	}
	defer a.cleanupTempFile(ctx, manifest)

	// -f concat: concat demuxer reads the manifest
	// -safe 0: allow absolute paths in the manifest
	// -c copy: no re-encoding
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-c", "copy",
		"-y",
		outputPath,
	}

	if _, err := a.executor.Execute(ctx, a.ffmpegPath, args...); err != nil {
		return fmt.Errorf("ffmpeg concat: %w", err)
	}
	return nil
}

// cleanupTempFile removes a temporary file, logs warning if fails
func (a *implAggregator) cleanupTempFile(ctx context.Context, filePath string) {
	if err := os.Remove(filePath); err != nil {
		a.logger.Warn(ctx, "Failed to cleanup temp file %s: %v", filePath, err)
	} else {
		a.logger.Debug(ctx, "Cleaned up temp file: %s", filePath)
	}
}
