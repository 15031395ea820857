package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/queryflow/internal/engine"
	"github.com/vk/queryflow/internal/llmclient"
	"github.com/vk/queryflow/internal/registry"
	"github.com/vk/queryflow/internal/retrieval"
	"github.com/vk/queryflow/modules/knowledge"
	"github.com/vk/queryflow/modules/llm"
	"github.com/vk/queryflow/modules/output"
	"github.com/vk/queryflow/modules/userquery"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()

	store := retrieval.NewMemoryStore()
	store.Add("d1", "X is a placeholder name used in examples")

	reg := registry.New()
	for _, m := range []registry.Module{
		userquery.Module{},
		knowledge.Module{Retriever: store},
		llm.Module{Generator: &llmclient.Mock{Reply: "X is a placeholder."}},
		output.Module{},
	} {
		m.Register(reg)
	}

	return NewRouter(engine.New(reg, engine.Options{}))
}

const chainDefinition = `{
	"nodes": [
		{"id": "q", "type": "user_query", "config": {}},
		{"id": "k", "type": "knowledge_base", "config": {"top_k": 1}},
		{"id": "l", "type": "llm_engine", "config": {}},
		{"id": "o", "type": "output", "config": {}}
	],
	"edges": [
		{"from": "q", "to": "k"},
		{"from": "k", "to": "l"},
		{"from": "l", "to": "o"}
	]
}`

func postRun(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/workflow/run", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleRun_Success(t *testing.T) {
	router := testRouter(t)
	rec := postRun(t, router, `{
		"workflow_definition": `+chainDefinition+`,
		"user_query": "What is X?"
	}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Result map[string]any   `json:"result"`
		Trace  []map[string]any `json:"trace"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	assert.Equal(t, "X is a placeholder.\nSources: d1", res.Result["result"])
	require.Len(t, res.Trace, 4)
	var ids []string
	for _, entry := range res.Trace {
		assert.Equal(t, "success", entry["status"])
		ids = append(ids, entry["node_id"].(string))
	}
	assert.Equal(t, []string{"q", "k", "l", "o"}, ids)
}

func TestHandleRun_ValidationFailure(t *testing.T) {
	router := testRouter(t)
	rec := postRun(t, router, `{
		"workflow_definition": {
			"nodes": [{"id": "q", "type": "user_query", "config": {}}],
			"edges": []
		},
		"user_query": "What is X?"
	}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var res struct {
		ValidationErrors []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"validation_errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotEmpty(t, res.ValidationErrors)
	assert.Equal(t, "output", res.ValidationErrors[0].Field)
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, llmclient.Request) (string, error) {
	return "", errors.New("provider unavailable")
}

func TestHandleRun_NodeFailure(t *testing.T) {
	store := retrieval.NewMemoryStore()
	store.Add("d1", "X is a placeholder name used in examples")

	reg := registry.New()
	for _, m := range []registry.Module{
		userquery.Module{},
		knowledge.Module{Retriever: store},
		llm.Module{Generator: failingGenerator{}},
		output.Module{},
	} {
		m.Register(reg)
	}
	router := NewRouter(engine.New(reg, engine.Options{}))

	rec := postRun(t, router, `{
		"workflow_definition": `+chainDefinition+`,
		"user_query": "What is X?"
	}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var res struct {
		Error        string           `json:"error"`
		NodeID       string           `json:"node_id"`
		NodeType     string           `json:"node_type"`
		ErrorMessage string           `json:"error_message"`
		Trace        []map[string]any `json:"trace"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	assert.Equal(t, "Node execution error", res.Error)
	assert.Equal(t, "l", res.NodeID)
	assert.Equal(t, "llm_engine", res.NodeType)
	assert.Contains(t, res.ErrorMessage, "provider unavailable")
	require.Len(t, res.Trace, 3, "trace covers q, k and the failing l")
	assert.Equal(t, "error", res.Trace[2]["status"])
}

func TestHandleRun_BadRequests(t *testing.T) {
	router := testRouter(t)

	rec := postRun(t, router, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postRun(t, router, `{"workflow_definition": `+chainDefinition+`}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing 'user_query'")
}

func TestHealthz(t *testing.T) {
	router := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}
