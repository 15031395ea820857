// Package httpapi exposes the workflow engine over HTTP. It is a thin
// translation layer: decode the run request, hand it to the engine, and map
// the three possible outcomes (result, validation failure, node failure)
// onto their response envelopes. No workflow logic lives here.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/vk/queryflow/internal/ctxlog"
	"github.com/vk/queryflow/internal/engine"
	"github.com/vk/queryflow/internal/validator"
	"github.com/vk/queryflow/internal/workflow"
)

const maxRequestBodyBytes = 1 << 20

type handlers struct {
	engine *engine.Engine
}

// NewRouter builds the HTTP handler for the engine.
func NewRouter(eng *engine.Engine) http.Handler {
	h := &handlers{engine: eng}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /workflow/run", h.handleRun)
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	return mux
}

type runRequest struct {
	WorkflowDefinition *workflow.Definition `json:"workflow_definition"`
	UserQuery          string               `json:"user_query"`
	RunID              string               `json:"run_id"`
}

type nodeErrorResponse struct {
	Error        string              `json:"error"`
	NodeID       string              `json:"node_id"`
	NodeType     string              `json:"node_type"`
	ErrorMessage string              `json:"error_message"`
	Trace        []engine.TraceEntry `json:"trace"`
}

type validationResponse struct {
	ValidationErrors validator.Errors `json:"validation_errors"`
}

func (h *handlers) handleRun(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(r.Context())

	var req runRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if req.UserQuery == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing 'user_query'"})
		return
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	res, err := h.engine.Run(r.Context(), req.WorkflowDefinition, req.UserQuery, runID)
	if err != nil {
		var vErrs validator.Errors
		if errors.As(err, &vErrs) {
			writeJSON(w, http.StatusBadRequest, validationResponse{ValidationErrors: vErrs})
			return
		}

		var nodeErr *engine.NodeError
		if errors.As(err, &nodeErr) {
			writeJSON(w, http.StatusInternalServerError, nodeErrorResponse{
				Error:        "Node execution error",
				NodeID:       nodeErr.NodeID,
				NodeType:     nodeErr.NodeType,
				ErrorMessage: nodeErr.Err.Error(),
				Trace:        nodeErr.Trace,
			})
			return
		}

		logger.Error("Unexpected run failure.", "run_id", runID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "workflow execution failed"})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
