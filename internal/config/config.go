package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Paths    PathsConfig    `yaml:"paths"`
	FFmpeg   FFmpegConfig   `yaml:"ffmpeg"`
	Whisper  WhisperConfig  `yaml:"whisper"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Summary  SummaryConfig  `yaml:"summary"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Liveness LivenessConfig `yaml:"liveness"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Address        string   `yaml:"address"`
	Port           int      `yaml:"port"`
	ReadLimitBytes int64    `yaml:"read_limit_bytes"`
	ShutdownGrace  Duration `yaml:"shutdown_grace"`
}

type PathsConfig struct {
	Chunks   string `yaml:"chunks"`
	Temp     string `yaml:"temp"`
	Database string `yaml:"database"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
}

type WhisperConfig struct {
	ModelPath  string `yaml:"model_path"`
	BinaryPath string `yaml:"binary_path"`
	Language   string `yaml:"language"`
	Task       string `yaml:"task"`
	Prompt     string `yaml:"prompt"`
	Threads    int    `yaml:"threads"`
}

type GeminiConfig struct {
	Model   string   `yaml:"model"`
	APIKeys []string `yaml:"api_keys"`
}

type SummaryConfig struct {
	MaxLength          int   `yaml:"max_length"`
	IncludeKeyPoints   *bool `yaml:"include_key_points"`
	IncludeActionItems *bool `yaml:"include_action_items"`
	IncludeTopics      *bool `yaml:"include_topics"`
}

type PipelineConfig struct {
	MaxConcurrent     int      `yaml:"max_concurrent"`
	StabilityInterval Duration `yaml:"stability_interval"`
	StabilityChecks   int      `yaml:"stability_checks"`
	StabilityTimeout  Duration `yaml:"stability_timeout"`
	FinalizeTimeout   Duration `yaml:"finalize_timeout"`
}

type LivenessConfig struct {
	SweepInterval    Duration `yaml:"sweep_interval"`
	HeartbeatTimeout Duration `yaml:"heartbeat_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a time.Duration that unmarshals from strings like "15s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// LoadEnvFile exports the variables of a dotenv file without overriding ones
// already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load reads the yaml file at path, expands ${ENV} references and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		cfg.Gemini.APIKeys = append(cfg.Gemini.APIKeys, key)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Paths.Chunks == "" {
		return fmt.Errorf("paths.chunks is required")
	}
	if c.Paths.Database == "" {
		return fmt.Errorf("paths.database is required")
	}
	if c.Whisper.ModelPath == "" {
		return fmt.Errorf("whisper.model_path is required")
	}
	if c.Whisper.BinaryPath == "" {
		return fmt.Errorf("whisper.binary_path is required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", c.Server.Port)
	}
	if c.Whisper.Task != "" && c.Whisper.Task != "transcribe" && c.Whisper.Task != "translate" {
		return fmt.Errorf("whisper.task must be 'transcribe' or 'translate', got '%s'", c.Whisper.Task)
	}
	if c.Summary.MaxLength < 0 {
		return fmt.Errorf("summary.max_length cannot be negative, got %d", c.Summary.MaxLength)
	}

	var filtered []string
	for _, key := range c.Gemini.APIKeys {
		if key = strings.TrimSpace(key); key != "" {
			filtered = append(filtered, key)
		}
	}
	c.Gemini.APIKeys = filtered

	if c.Server.Address == "" {
		c.Server.Address = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 4000
	}
	if c.Server.ReadLimitBytes == 0 {
		c.Server.ReadLimitBytes = 16 << 20
	}
	if c.Server.ShutdownGrace.Duration == 0 {
		c.Server.ShutdownGrace.Duration = 10 * time.Second
	}
	if c.Paths.Temp == "" {
		c.Paths.Temp = "data/temp"
	}
	if c.FFmpeg.BinaryPath == "" {
		c.FFmpeg.BinaryPath = "ffmpeg"
	}
	if c.Whisper.Language == "" {
		c.Whisper.Language = "auto"
	}
	if c.Whisper.Task == "" {
		c.Whisper.Task = "transcribe"
	}
	if c.Whisper.Threads == 0 {
		c.Whisper.Threads = 4
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Summary.MaxLength == 0 {
		c.Summary.MaxLength = 2000
	}
	if c.Summary.IncludeKeyPoints == nil {
		c.Summary.IncludeKeyPoints = boolPtr(true)
	}
	if c.Summary.IncludeActionItems == nil {
		c.Summary.IncludeActionItems = boolPtr(true)
	}
	if c.Summary.IncludeTopics == nil {
		c.Summary.IncludeTopics = boolPtr(true)
	}
	if c.Pipeline.MaxConcurrent == 0 {
		c.Pipeline.MaxConcurrent = 2
	}
	if c.Pipeline.StabilityInterval.Duration == 0 {
		c.Pipeline.StabilityInterval.Duration = 500 * time.Millisecond
	}
	if c.Pipeline.StabilityChecks == 0 {
		c.Pipeline.StabilityChecks = 3
	}
	if c.Pipeline.StabilityTimeout.Duration == 0 {
		c.Pipeline.StabilityTimeout.Duration = 30 * time.Second
	}
	if c.Pipeline.FinalizeTimeout.Duration == 0 {
		c.Pipeline.FinalizeTimeout.Duration = 15 * time.Minute
	}
	if c.Liveness.SweepInterval.Duration == 0 {
		c.Liveness.SweepInterval.Duration = 15 * time.Second
	}
	if c.Liveness.HeartbeatTimeout.Duration == 0 {
		c.Liveness.HeartbeatTimeout.Duration = 90 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	return nil
}

// SummarizerConfigured reports whether a real summarization backend can be used.
func (c *Config) SummarizerConfigured() bool {
	return len(c.Gemini.APIKeys) > 0
}

func boolPtr(b bool) *bool { return &b }
