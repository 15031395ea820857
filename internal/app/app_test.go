package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/queryflow/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.LogLevel = slog.LevelError
	return &cfg
}

func TestNew_RegistersCoreCapabilities(t *testing.T) {
	cfg := testConfig()
	cfg.ServeAddr = ":0"

	a, err := New(&bytes.Buffer{}, cfg)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"knowledge_base", "llm_engine", "output", "user_query"},
		a.Registry().KnownTypes(),
	)
}

func TestNew_LoadsCorpus(t *testing.T) {
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "corpus.json")
	corpus := `[
		{"id": "d1", "content": "go concurrency patterns"},
		{"id": "d2", "content": "http servers in go"}
	]`
	require.NoError(t, os.WriteFile(corpusPath, []byte(corpus), 0o644))

	cfg := testConfig()
	cfg.ServeAddr = ":0"
	cfg.CorpusPath = corpusPath

	_, err := New(&bytes.Buffer{}, cfg)
	require.NoError(t, err)

	cfg.CorpusPath = filepath.Join(dir, "missing.json")
	_, err = New(&bytes.Buffer{}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load corpus")
}

func TestRun_OneShotJSONWorkflow(t *testing.T) {
	dir := t.TempDir()
	wfPath := filepath.Join(dir, "wf.json")
	def := `{
		"nodes": [
			{"id": "q", "type": "user_query"},
			{"id": "k", "type": "knowledge_base"},
			{"id": "l", "type": "llm_engine"},
			{"id": "o", "type": "output"}
		],
		"edges": [
			{"from": "q", "to": "k"},
			{"from": "k", "to": "l"},
			{"from": "l", "to": "o"}
		]
	}`
	require.NoError(t, os.WriteFile(wfPath, []byte(def), 0o644))

	cfg := testConfig()
	cfg.WorkflowPath = wfPath
	cfg.Query = "How do goroutines work?"

	var out bytes.Buffer
	a, err := New(&out, cfg)
	require.NoError(t, err)

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), `"result"`)
	assert.Contains(t, out.String(), `"trace"`)
}

func TestRun_OneShotProviderUsesConfiguredModel(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotModel = body.Model
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "X is Y."}},
			},
		})
	}))
	defer srv.Close()

	dir := t.TempDir()
	wfPath := filepath.Join(dir, "wf.json")
	def := `{
		"nodes": [
			{"id": "q", "type": "user_query"},
			{"id": "l", "type": "llm_engine"},
			{"id": "o", "type": "output"}
		],
		"edges": [
			{"from": "q", "to": "l"},
			{"from": "l", "to": "o"}
		]
	}`
	require.NoError(t, os.WriteFile(wfPath, []byte(def), 0o644))

	cfg := testConfig()
	cfg.WorkflowPath = wfPath
	cfg.Query = "What is X?"
	cfg.LLMMode = config.LLMModeProvider
	cfg.LLMAPIKey = "k"
	cfg.LLMBaseURL = srv.URL
	cfg.LLMModel = "configured-model"

	var out bytes.Buffer
	a, err := New(&out, cfg)
	require.NoError(t, err)

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, "configured-model", gotModel)
	assert.Contains(t, out.String(), "X is Y.")
}

func TestRun_OneShotRejectsInvalidWorkflow(t *testing.T) {
	dir := t.TempDir()
	wfPath := filepath.Join(dir, "wf.json")
	// Missing entry and terminal nodes.
	def := `{
		"nodes": [{"id": "l", "type": "llm_engine"}],
		"edges": []
	}`
	require.NoError(t, os.WriteFile(wfPath, []byte(def), 0o644))

	cfg := testConfig()
	cfg.WorkflowPath = wfPath
	cfg.Query = "anything"

	var out bytes.Buffer
	a, err := New(&out, cfg)
	require.NoError(t, err)

	err = a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow rejected")
	assert.Contains(t, out.String(), `"validation_errors"`)
}

func TestRun_OneShotHCLWorkflow(t *testing.T) {
	dir := t.TempDir()
	wfPath := filepath.Join(dir, "wf.hcl")
	def := `
workflow {
  node "q" {
    type = "user_query"
  }
  node "o" {
    type = "output"
    config = {
      format = "json"
    }
  }
  edge {
    from = "q"
    to   = "o"
  }
}
`
	require.NoError(t, os.WriteFile(wfPath, []byte(def), 0o644))

	cfg := testConfig()
	cfg.WorkflowPath = wfPath
	cfg.Query = "hello"

	var out bytes.Buffer
	a, err := New(&out, cfg)
	require.NoError(t, err)

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), `"trace"`)
}
