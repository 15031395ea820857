package engine

import (
	"errors"
	"fmt"
)

// Execution-time failure classes. All of them are fail-fast: the first
// occurrence halts the run. None is retried by the engine, because node side
// effects (e.g. billed provider calls) are not assumed idempotent.
var (
	// ErrResourceExhausted means a rate-limited node could not obtain a
	// permit within the configured wait bound.
	ErrResourceExhausted = errors.New("could not acquire permit: too many concurrent rate-limited calls")

	// ErrNodeTimeout means a node did not complete within its per-node
	// wall-clock budget. The underlying work is abandoned, not stopped.
	ErrNodeTimeout = errors.New("node execution timed out")

	// ErrBadOutput means a capability returned a malformed output.
	ErrBadOutput = errors.New("node did not return an output map")
)

// NodeError is the structured failure returned when a node halts a run. It
// carries the trace accumulated up to and including the failing entry.
type NodeError struct {
	NodeID   string
	NodeType string
	Err      error
	Trace    []TraceEntry
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node '%s' (%s) failed: %v", e.NodeID, e.NodeType, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }
