package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/queryflow/internal/config"
)

func TestParse_ServeMode(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"-serve", "127.0.0.1:9090", "-log-format", "json", "-llm-permits", "8"}, &out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "127.0.0.1:9090", cfg.ServeAddr)
	assert.Equal(t, config.LogFormatJSON, cfg.LogFormat)
	assert.Equal(t, int64(8), cfg.PermitPoolSize)
}

func TestParse_OneShot(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"-query", "What is X?", "-node-timeout", "10s", "wf.hcl"}, &out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "wf.hcl", cfg.WorkflowPath)
	assert.Equal(t, "What is X?", cfg.Query)
	assert.Equal(t, 10*time.Second, cfg.NodeTimeout)
}

func TestParse_NoArgsPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse(nil, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_InvalidInputs(t *testing.T) {
	var out bytes.Buffer

	_, _, err := Parse([]string{"-serve", ":8080", "-log-level", "loud"}, &out)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)

	_, _, err = Parse([]string{"wf.hcl"}, &out) // one-shot without query
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, exitErr.Message, "requires a query")

	_, _, err = Parse([]string{"-serve", ":8080", "-llm-mode", "psychic"}, &out)
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, exitErr.Message, "unsupported llm mode")
}

func TestParse_HelpExitsCleanly(t *testing.T) {
	var out bytes.Buffer
	_, exit, err := Parse([]string{"-h"}, &out)
	require.NoError(t, err)
	assert.True(t, exit)
}
