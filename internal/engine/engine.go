// Package engine drives a validated workflow definition to completion: it
// validates, computes the scheduler order, assembles each node's input from
// its predecessors, dispatches capabilities under a timeout and a shared
// permit pool, records a trace, and halts on the first failure.
//
// Within one run, nodes execute strictly sequentially in scheduler order.
// Across runs, many engines' runs may proceed concurrently; the only shared
// mutable state between them is the permit pool bounding rate-limited
// capabilities. The ExecutionContext and trace of a run are owned by that
// run alone and need no locking.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vk/queryflow/internal/audit"
	"github.com/vk/queryflow/internal/ctxlog"
	"github.com/vk/queryflow/internal/registry"
	"github.com/vk/queryflow/internal/scheduler"
	"github.com/vk/queryflow/internal/validator"
	"github.com/vk/queryflow/internal/workflow"
)

// Defaults applied by New when an Options field is zero.
const (
	DefaultNodeTimeout    = 30 * time.Second
	DefaultPermitPoolSize = 4
	DefaultPermitWait     = 30 * time.Second
)

// Options configures an Engine.
type Options struct {
	// NodeTimeout bounds each single node invocation. It applies per node,
	// not per run.
	NodeTimeout time.Duration
	// PermitPoolSize is the number of simultaneous invocations allowed for
	// rate-limited capabilities, shared across all runs of this engine.
	PermitPoolSize int64
	// PermitWait bounds how long a node blocks waiting for a permit before
	// failing with ErrResourceExhausted.
	PermitWait time.Duration
	// Audit receives the outcome of every run. Optional; its failures are
	// swallowed.
	Audit audit.Recorder
}

// Engine executes workflow definitions. An Engine is safe for concurrent
// use; each Run owns its own context map and trace.
type Engine struct {
	reg         *registry.Registry
	permits     *semaphore.Weighted
	nodeTimeout time.Duration
	permitWait  time.Duration
	audit       audit.Recorder
}

// New creates an Engine over the given capability registry.
func New(reg *registry.Registry, opts Options) *Engine {
	if opts.NodeTimeout <= 0 {
		opts.NodeTimeout = DefaultNodeTimeout
	}
	if opts.PermitPoolSize <= 0 {
		opts.PermitPoolSize = DefaultPermitPoolSize
	}
	if opts.PermitWait <= 0 {
		opts.PermitWait = DefaultPermitWait
	}
	return &Engine{
		reg:         reg,
		permits:     semaphore.NewWeighted(opts.PermitPoolSize),
		nodeTimeout: opts.NodeTimeout,
		permitWait:  opts.PermitWait,
		audit:       opts.Audit,
	}
}

// Run validates def and executes it against the initial query. On success it
// returns the first terminal node's output (in scheduler order) plus the
// full trace. On failure the returned error is either validator.Errors (the
// definition never ran) or a *NodeError carrying the partial trace.
func (e *Engine) Run(ctx context.Context, def *workflow.Definition, query string, runID string) (*RunResult, error) {
	logger := ctxlog.FromContext(ctx).With("run_id", runID)

	if errs := validator.Validate(def, e.reg.KnownTypes()); errs != nil {
		logger.Warn("Workflow rejected by validation.", "violations", len(errs))
		return nil, errs
	}

	order := scheduler.Order(def)
	nodesByID := def.NodesByID()
	parents := def.Parents()
	logger.Debug("Workflow validated, starting execution.", "nodes", len(order))

	// ExecutionContext: node id -> that node's output. Owned by this run.
	outputs := make(map[string]map[string]any, len(order))
	trace := make([]TraceEntry, 0, len(order))

	for _, nodeID := range order {
		node := nodesByID[nodeID]
		input := e.assembleInput(node, parents[nodeID], outputs, query)

		entry := TraceEntry{
			NodeID:    node.ID,
			NodeType:  node.Type,
			StartedAt: time.Now().UTC(),
			Status:    StatusError,
		}
		start := time.Now()

		output, err := e.invoke(ctx, node, input)
		entry.Duration = time.Since(start).Seconds()

		if err != nil {
			entry.ErrorMessage = err.Error()
			trace = append(trace, entry)
			logger.Error("Node execution failed, halting run.", "node_id", node.ID, "node_type", node.Type, "error", err)

			nodeErr := &NodeError{NodeID: node.ID, NodeType: node.Type, Err: err, Trace: trace}
			e.record(ctx, audit.Entry{RunID: runID, Query: query, Error: nodeErr.Error()})
			return nil, nodeErr
		}

		entry.Status = StatusSuccess
		entry.OutputKeys = sortedKeys(output)
		trace = append(trace, entry)
		outputs[node.ID] = output
		logger.Debug("Node executed.", "node_id", node.ID, "node_type", node.Type, "duration_seconds", entry.Duration)
	}

	result := e.terminalOutput(order, nodesByID, outputs)
	e.record(ctx, audit.Entry{RunID: runID, Query: query, Result: result})
	logger.Info("Workflow run completed.", "nodes_executed", len(trace))

	return &RunResult{Result: result, Trace: trace}, nil
}

// assembleInput builds a node's input map. The entry node receives the
// caller's query; every other node receives the union of its direct
// predecessors' outputs, merged in edge-list order. On a key collision the
// predecessor whose edge appears later in the list wins. This tie-break is
// deliberate and deterministic because both the predecessor order and the
// scheduler order are fixed for a fixed definition.
func (e *Engine) assembleInput(node workflow.Node, preds []string, outputs map[string]map[string]any, query string) map[string]any {
	input := make(map[string]any)
	if node.Type == workflow.EntryType {
		input["query"] = query
		return input
	}
	for _, p := range preds {
		for k, v := range outputs[p] {
			input[k] = v
		}
	}
	return input
}

// invoke runs one node's capability under the permit and timeout policies.
func (e *Engine) invoke(ctx context.Context, node workflow.Node, input map[string]any) (map[string]any, error) {
	unit, err := e.reg.Create(node.Type, node.ID, node.Config)
	if err != nil {
		return nil, err
	}

	if e.reg.IsRateLimited(node.Type) {
		acquireCtx, cancel := context.WithTimeout(ctx, e.permitWait)
		err := e.permits.Acquire(acquireCtx, 1)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, ErrResourceExhausted
			}
			return nil, fmt.Errorf("acquire permit: %w", err)
		}
		// Held only for this single invocation, released unconditionally.
		defer e.permits.Release(1)
	}

	nodeCtx, cancel := context.WithTimeout(ctx, e.nodeTimeout)
	defer cancel()

	type outcome struct {
		output map[string]any
		err    error
	}
	// Buffered so an abandoned invocation can deliver its late result
	// without leaking the goroutine.
	done := make(chan outcome, 1)
	go func() {
		output, err := unit.Run(nodeCtx, input)
		done <- outcome{output: output, err: err}
	}()

	select {
	case <-nodeCtx.Done():
		// Best-effort abandonment: the capability saw the cancellation via
		// nodeCtx, but the engine does not wait for it to wind down. A late
		// result is discarded.
		if errors.Is(nodeCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrNodeTimeout
		}
		return nil, nodeCtx.Err()
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		if out.output == nil {
			return nil, ErrBadOutput
		}
		return out.output, nil
	}
}

// terminalOutput picks the canonical result: the output of the first
// terminal-type node in scheduler order. Validation permits multiple
// terminal nodes; only the first is surfaced.
func (e *Engine) terminalOutput(order []string, nodesByID map[string]workflow.Node, outputs map[string]map[string]any) map[string]any {
	for _, id := range order {
		if nodesByID[id].Type == workflow.TerminalType {
			return outputs[id]
		}
	}
	return map[string]any{}
}

// record hands the run outcome to the audit collaborator. Failures are
// logged and dropped; auditing must never alter a run's result.
func (e *Engine) record(ctx context.Context, entry audit.Entry) {
	if e.audit == nil {
		return
	}
	if err := e.audit.Record(ctx, entry); err != nil {
		ctxlog.FromContext(ctx).Warn("Audit recorder failed; result unaffected.", "run_id", entry.RunID, "error", err)
	}
}
