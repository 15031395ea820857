package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveConfig() Config {
	cfg := Default()
	cfg.ServeAddr = "127.0.0.1:8080"
	return cfg
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("QUERYFLOW_LLM_MODE", "provider")
	t.Setenv("QUERYFLOW_LLM_API_KEY", "k")
	t.Setenv("QUERYFLOW_LLM_MODEL", "other-model")
	t.Setenv("QUERYFLOW_LLM_TIMEOUT", "5s")
	t.Setenv("QUERYFLOW_LOG_LEVEL", "debug")
	t.Setenv("QUERYFLOW_LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, LLMModeProvider, cfg.LLMMode)
	assert.Equal(t, "k", cfg.LLMAPIKey)
	assert.Equal(t, "other-model", cfg.LLMModel)
	assert.Equal(t, 5*time.Second, cfg.LLMTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, LogFormatJSON, cfg.LogFormat)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("QUERYFLOW_LLM_TIMEOUT", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "parse QUERYFLOW_LLM_TIMEOUT")
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLogLevel("loud")
	assert.ErrorContains(t, err, "invalid log level")
}

func TestValidate(t *testing.T) {
	t.Run("serve config is valid", func(t *testing.T) {
		assert.NoError(t, serveConfig().Validate())
	})

	t.Run("provider mode requires key", func(t *testing.T) {
		cfg := serveConfig()
		cfg.LLMMode = LLMModeProvider
		assert.ErrorContains(t, cfg.Validate(), "QUERYFLOW_LLM_API_KEY")

		cfg.LLMAPIKey = "k"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown llm mode", func(t *testing.T) {
		cfg := serveConfig()
		cfg.LLMMode = "psychic"
		assert.ErrorContains(t, cfg.Validate(), "unsupported llm mode")
	})

	t.Run("needs serve address or workflow file", func(t *testing.T) {
		cfg := Default()
		assert.ErrorContains(t, cfg.Validate(), "serve address or a workflow file")
	})

	t.Run("one-shot run requires query", func(t *testing.T) {
		cfg := Default()
		cfg.WorkflowPath = "wf.hcl"
		assert.ErrorContains(t, cfg.Validate(), "requires a query")

		cfg.Query = "What is X?"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("non-positive limits rejected", func(t *testing.T) {
		cfg := serveConfig()
		cfg.NodeTimeout = 0
		assert.ErrorContains(t, cfg.Validate(), "node timeout")

		cfg = serveConfig()
		cfg.PermitPoolSize = 0
		assert.ErrorContains(t, cfg.Validate(), "permit pool size")

		cfg = serveConfig()
		cfg.PermitWait = -time.Second
		assert.ErrorContains(t, cfg.Validate(), "permit wait")
	})
}
