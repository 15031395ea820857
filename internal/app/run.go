package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/vk/queryflow/internal/ctxlog"
	"github.com/vk/queryflow/internal/engine"
	"github.com/vk/queryflow/internal/hclwf"
	"github.com/vk/queryflow/internal/httpapi"
	"github.com/vk/queryflow/internal/validator"
	"github.com/vk/queryflow/internal/workflow"
)

const shutdownTimeout = 5 * time.Second

// Run executes the configured mode: HTTP server or one-shot workflow run.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	if a.config.ServeAddr != "" {
		return a.serve(ctx)
	}
	return a.runOnce(ctx)
}

// serve runs the HTTP surface until ctx is canceled.
func (a *App) serve(ctx context.Context) error {
	server := &http.Server{
		Addr:    a.config.ServeAddr,
		Handler: httpapi.NewRouter(a.engine),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP API listening.", "addr", a.config.ServeAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down HTTP API.")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	}
}

// runOnce loads the configured workflow file, executes it with the
// configured query, and writes the outcome as JSON to the output writer.
func (a *App) runOnce(ctx context.Context) error {
	def, err := loadDefinition(a.config.WorkflowPath)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	a.logger.Info("Starting workflow run.", "run_id", runID, "workflow", a.config.WorkflowPath)

	res, err := a.engine.Run(ctx, def, a.config.Query, runID)
	if err != nil {
		var vErrs validator.Errors
		if errors.As(err, &vErrs) {
			a.writeJSON(map[string]any{"validation_errors": vErrs})
			return fmt.Errorf("workflow rejected: %d validation error(s)", len(vErrs))
		}

		var nodeErr *engine.NodeError
		if errors.As(err, &nodeErr) {
			a.writeJSON(map[string]any{
				"error":         "Node execution error",
				"node_id":       nodeErr.NodeID,
				"node_type":     nodeErr.NodeType,
				"error_message": nodeErr.Err.Error(),
				"trace":         nodeErr.Trace,
			})
		}
		return err
	}

	a.writeJSON(res)
	return nil
}

// loadDefinition picks the decoder by file extension: .hcl for hand-written
// workflows, anything else is treated as the JSON wire format.
func loadDefinition(path string) (*workflow.Definition, error) {
	if filepath.Ext(path) == ".hcl" {
		return hclwf.LoadFile(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}
	return workflow.DecodeJSON(data)
}

func (a *App) writeJSON(v any) {
	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		a.logger.Error("Failed to write result.", "error", err)
	}
}
