package transcriber

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Jasonwill2004/ScribeAI/internal/models"
)

// Transcribe converts audioPath to 16kHz mono WAV and runs whisper.cpp over it once.
func (t *implTranscriber) Transcribe(ctx context.Context, audioPath string, opts Options) (Result, error) {
	startTime := time.Now()

	if t.cfg.TempDir != "" {
		if err := os.MkdirAll(t.cfg.TempDir, 0755); err != nil {
			return Result{}, fmt.Errorf("%w: create temp dir: %v", models.ErrTranscriptionFailed, err)
		}
	}
	workDir, err := os.MkdirTemp(t.cfg.TempDir, "transcribe-*")
	if err != nil {
		return Result{}, fmt.Errorf("%w: create work dir: %v", models.ErrTranscriptionFailed, err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			t.logger.Warn(ctx, "Failed to cleanup transcription dir %s: %v", workDir, err)
		}
	}()

	wavPath, err := t.extractAudio(ctx, audioPath, workDir)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", models.ErrTranscriptionFailed, err)
	}

	text, err := t.runWhisper(ctx, wavPath, workDir, opts)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", models.ErrTranscriptionFailed, err)
	}

	durationMs, err := wavDurationMs(wavPath)
	if err != nil {
		t.logger.Warn(ctx, "Could not read audio duration from %s: %v", wavPath, err)
	}

	t.logger.Info(ctx, "Transcription completed in %s (%d ms of audio, %d chars)",
		time.Since(startTime).Round(time.Millisecond), durationMs, len(text))

	return Result{Text: text, DurationMs: durationMs}, nil
}

// extractAudio converts any input container to 16kHz mono PCM WAV, the format whisper.cpp reads.
func (t *implTranscriber) extractAudio(ctx context.Context, audioPath, workDir string) (string, error) {
	wavPath := filepath.Join(workDir, "audio.wav")

	// -vn: drop any video stream
	// -ar 16000 -ac 1: 16kHz mono
	// -c:a pcm_s16le: 16-bit little-endian PCM
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", audioPath,
		"-vn",
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-threads", "0",
		"-y",
		wavPath,
	}

	if _, err := t.executor.Execute(ctx, t.cfg.FFmpegPath, args...); err != nil {
		return "", fmt.Errorf("ffmpeg extract audio: %w", err)
	}
	return wavPath, nil
}

func (t *implTranscriber) runWhisper(ctx context.Context, wavPath, workDir string, opts Options) (string, error) {
	outputPrefix := filepath.Join(workDir, "transcript")

	language := opts.Language
	if language == "" {
		language = "auto"
	}

	// -otxt: plain text output written to <prefix>.txt
	// -np: no progress prints on stdout
	args := []string{
		"-m", t.cfg.ModelPath,
		"-f", wavPath,
		"-otxt",
		"-np",
		"-l", language,
		"-t", strconv.Itoa(t.cfg.Threads),
		"--output-file", outputPrefix,
	}
	if opts.Task == "translate" {
		args = append(args, "-tr")
	}
	if t.cfg.Prompt != "" {
		args = append(args, "--prompt", t.cfg.Prompt)
	}

	// Run inside workDir so any stray output whisper writes is removed with it.
	if _, err := t.executor.ExecuteInDir(ctx, workDir, t.cfg.BinaryPath, args...); err != nil {
		return "", fmt.Errorf("whisper transcribe: %w", err)
	}

	data, err := os.ReadFile(outputPrefix + ".txt")
	if err != nil {
		return "", fmt.Errorf("read whisper output: %w", err)
	}
	return normalizeText(string(data)), nil
}

// normalizeText trims each segment line and drops blank ones.
func normalizeText(raw string) string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
