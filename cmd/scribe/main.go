package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Jasonwill2004/ScribeAI/internal/aggregator"
	"github.com/Jasonwill2004/ScribeAI/internal/chunkstore"
	"github.com/Jasonwill2004/ScribeAI/internal/config"
	"github.com/Jasonwill2004/ScribeAI/internal/logger"
	"github.com/Jasonwill2004/ScribeAI/internal/metrics"
	"github.com/Jasonwill2004/ScribeAI/internal/pipeline"
	"github.com/Jasonwill2004/ScribeAI/internal/repository"
	"github.com/Jasonwill2004/ScribeAI/internal/summarizer"
	"github.com/Jasonwill2004/ScribeAI/internal/transcriber"
	"github.com/Jasonwill2004/ScribeAI/internal/transport"
	"github.com/Jasonwill2004/ScribeAI/internal/watcher"
	"github.com/Jasonwill2004/ScribeAI/pkg/executor"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config file")
	envPath := flag.String("env", ".env", "dotenv file loaded before the config")
	flag.Parse()

	ctx := context.Background()

	// Variables from the dotenv file feed ${ENV} references and GEMINI_API_KEY
	if err := config.LoadEnvFile(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load env file: %v\n", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info(ctx, "========================================")
	log.Info(ctx, "ScribeAI session service")
	log.Info(ctx, "========================================")
	log.Info(ctx, "System: %s/%s", runtime.GOOS, runtime.GOARCH)
	log.Info(ctx, "Max Concurrent Finalizers: %d", cfg.Pipeline.MaxConcurrent)

	// Verify required directories exist
	if err := ensureDirectories(cfg); err != nil {
		log.Error(ctx, "Failed to create directories: %v", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "%v", err)
		os.Exit(1)
	}
	log.Info(ctx, "ScribeAI stopped")
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	repo, err := repository.Open(ctx, cfg.Paths.Database, log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()

	// Initialize dependencies
	exec := executor.New()
	backend := summarizer.NewFromConfig(summarizer.GeminiConfig{
		Model:   cfg.Gemini.Model,
		APIKeys: cfg.Gemini.APIKeys,
	}, log)
	if !cfg.SummarizerConfigured() {
		log.Warn(ctx, "No Gemini API key configured, summaries will be stubs")
	}

	p := pipeline.New(pipeline.Config{
		TempDir:         cfg.Paths.Temp,
		MaxConcurrent:   cfg.Pipeline.MaxConcurrent,
		FinalizeTimeout: cfg.Pipeline.FinalizeTimeout.Duration,
		Transcription: transcriber.Options{
			Language: cfg.Whisper.Language,
			Task:     cfg.Whisper.Task,
		},
		Summary: summarizer.Options{
			MaxLength:          cfg.Summary.MaxLength,
			IncludeKeyPoints:   *cfg.Summary.IncludeKeyPoints,
			IncludeActionItems: *cfg.Summary.IncludeActionItems,
			IncludeTopics:      *cfg.Summary.IncludeTopics,
		},
	}, pipeline.Deps{
		Repo:       repo,
		Store:      chunkstore.New(cfg.Paths.Chunks, log),
		Aggregator: aggregator.New(cfg.FFmpeg.BinaryPath, cfg.Paths.Temp, exec, log),
		Watcher: watcher.New(watcher.Config{
			Interval: cfg.Pipeline.StabilityInterval.Duration,
			Checks:   cfg.Pipeline.StabilityChecks,
			Timeout:  cfg.Pipeline.StabilityTimeout.Duration,
		}, log),
		Transcriber: transcriber.New(transcriber.Config{
			FFmpegPath: cfg.FFmpeg.BinaryPath,
			BinaryPath: cfg.Whisper.BinaryPath,
			ModelPath:  cfg.Whisper.ModelPath,
			Prompt:     cfg.Whisper.Prompt,
			Threads:    cfg.Whisper.Threads,
			TempDir:    cfg.Paths.Temp,
		}, exec, log),
		Summarizer: summarizer.New(backend, log),
		Metrics:    m,
		Logger:     log,
	})

	// Sessions left in processing by a previous run are finalized again.
	recovered, err := p.RecoverProcessing(ctx)
	if err != nil {
		log.Warn(ctx, "Failed to recover processing sessions: %v", err)
	} else if recovered > 0 {
		log.Info(ctx, "Restarted finalization for %d session(s)", recovered)
	}

	srv := transport.New(transport.Config{
		Address:          net.JoinHostPort(cfg.Server.Address, strconv.Itoa(cfg.Server.Port)),
		ReadLimitBytes:   cfg.Server.ReadLimitBytes,
		SweepInterval:    cfg.Liveness.SweepInterval.Duration,
		HeartbeatTimeout: cfg.Liveness.HeartbeatTimeout.Duration,
		TempDir:          cfg.Paths.Temp,
	}, p, m, reg, log)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	log.Info(ctx, "========================================")
	log.Info(ctx, "ScribeAI is ready!")
	log.Info(ctx, "Websocket: ws://%s:%d/ws", cfg.Server.Address, cfg.Server.Port)
	log.Info(ctx, "Chunks: %s", cfg.Paths.Chunks)
	log.Info(ctx, "Database: %s", cfg.Paths.Database)
	log.Info(ctx, "Summaries: %s", backend.Name())
	log.Info(ctx, "Press Ctrl+C to stop")
	log.Info(ctx, "========================================")

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info(ctx, "Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace.Duration)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn(ctx, "HTTP shutdown: %v", err)
	}
	if err := p.Shutdown(shutdownCtx); err != nil {
		log.Warn(ctx, "Pipeline shutdown: %v", err)
	}
	return nil
}

// ensureDirectories creates required directories if they don't exist
func ensureDirectories(cfg *config.Config) error {
	dirs := []string{
		cfg.Paths.Chunks,
		cfg.Paths.Temp,
		filepath.Dir(cfg.Paths.Database),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
