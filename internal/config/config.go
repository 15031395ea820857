// Package config holds the process-level runtime configuration. Values come
// from environment variables with CLI flags layered on top; the core engine
// never reads the environment itself.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LLMMode selects the generation collaborator implementation.
type LLMMode string

const (
	LLMModeMock     LLMMode = "mock"
	LLMModeProvider LLMMode = "provider"
)

// LogFormat selects the slog handler.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

const (
	defaultLogFormat      = LogFormatText
	defaultLogLevel       = slog.LevelInfo
	defaultLLMMode        = LLMModeMock
	defaultLLMBaseURL     = "https://api.openai.com/v1"
	defaultLLMModel       = "gpt-4.1-mini"
	defaultLLMTimeout     = 30 * time.Second
	defaultNodeTimeout    = 30 * time.Second
	defaultPermitPoolSize = 4
	defaultPermitWait     = 30 * time.Second
)

// Config is the full runtime configuration for one process.
type Config struct {
	// ServeAddr, when non-empty, starts the HTTP surface on that address.
	ServeAddr string
	// WorkflowPath is a .hcl or .json workflow file for a one-shot run.
	WorkflowPath string
	// Query is the initial query for a one-shot run.
	Query string

	LogFormat LogFormat
	LogLevel  slog.Level

	LLMMode    LLMMode
	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string
	LLMTimeout time.Duration

	NodeTimeout    time.Duration
	PermitPoolSize int64
	PermitWait     time.Duration

	// CorpusPath is an optional JSON document corpus for the in-memory
	// retriever.
	CorpusPath string
}

// Default returns the baseline configuration before env and flags apply.
func Default() Config {
	return Config{
		LogFormat:      defaultLogFormat,
		LogLevel:       defaultLogLevel,
		LLMMode:        defaultLLMMode,
		LLMBaseURL:     defaultLLMBaseURL,
		LLMModel:       defaultLLMModel,
		LLMTimeout:     defaultLLMTimeout,
		NodeTimeout:    defaultNodeTimeout,
		PermitPoolSize: defaultPermitPoolSize,
		PermitWait:     defaultPermitWait,
	}
}

// Load reads configuration from the environment on top of defaults.
func Load() (Config, error) {
	cfg := Default()

	if mode := strings.TrimSpace(os.Getenv("QUERYFLOW_LLM_MODE")); mode != "" {
		cfg.LLMMode = LLMMode(mode)
	}
	if key := strings.TrimSpace(os.Getenv("QUERYFLOW_LLM_API_KEY")); key != "" {
		cfg.LLMAPIKey = key
	}
	if url := strings.TrimSpace(os.Getenv("QUERYFLOW_LLM_BASE_URL")); url != "" {
		cfg.LLMBaseURL = url
	}
	if model := strings.TrimSpace(os.Getenv("QUERYFLOW_LLM_MODEL")); model != "" {
		cfg.LLMModel = model
	}
	if timeout := strings.TrimSpace(os.Getenv("QUERYFLOW_LLM_TIMEOUT")); timeout != "" {
		parsed, err := time.ParseDuration(timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse QUERYFLOW_LLM_TIMEOUT: %w", err)
		}
		cfg.LLMTimeout = parsed
	}
	if level := strings.TrimSpace(os.Getenv("QUERYFLOW_LOG_LEVEL")); level != "" {
		parsed, err := ParseLogLevel(level)
		if err != nil {
			return Config{}, err
		}
		cfg.LogLevel = parsed
	}
	if format := strings.TrimSpace(os.Getenv("QUERYFLOW_LOG_FORMAT")); format != "" {
		cfg.LogFormat = LogFormat(format)
	}

	return cfg, nil
}

// ParseLogLevel maps a level name onto its slog.Level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q (allowed: debug, info, warn, error)", level)
	}
}

// Validate checks internal consistency. Called after env and flags merge.
func (c Config) Validate() error {
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("unsupported log format %q (allowed: %q, %q)", c.LogFormat, LogFormatText, LogFormatJSON)
	}

	switch c.LLMMode {
	case LLMModeMock:
	case LLMModeProvider:
		if strings.TrimSpace(c.LLMAPIKey) == "" {
			return errors.New("provider mode requires QUERYFLOW_LLM_API_KEY")
		}
		if strings.TrimSpace(c.LLMBaseURL) == "" {
			return errors.New("provider mode requires a base URL")
		}
		if strings.TrimSpace(c.LLMModel) == "" {
			return errors.New("provider mode requires a model")
		}
	default:
		return fmt.Errorf("unsupported llm mode %q (allowed: %q, %q)", c.LLMMode, LLMModeMock, LLMModeProvider)
	}

	if c.NodeTimeout <= 0 {
		return errors.New("node timeout must be > 0")
	}
	if c.PermitPoolSize <= 0 {
		return errors.New("permit pool size must be > 0")
	}
	if c.PermitWait <= 0 {
		return errors.New("permit wait must be > 0")
	}

	if c.ServeAddr == "" && c.WorkflowPath == "" {
		return errors.New("either a serve address or a workflow file is required")
	}
	if c.WorkflowPath != "" && c.Query == "" {
		return errors.New("a one-shot run requires a query")
	}

	return nil
}
