package engine

import (
	"sort"
	"time"
)

// Trace entry statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// TraceEntry is one per-node execution record. Entries are appended in
// scheduler order and never removed or reordered; a run's trace is the
// authoritative audit of what was attempted.
type TraceEntry struct {
	NodeID       string    `json:"node_id"`
	NodeType     string    `json:"node_type"`
	StartedAt    time.Time `json:"started_at"`
	Status       string    `json:"status"`
	Duration     float64   `json:"duration_seconds"`
	OutputKeys   []string  `json:"output_keys,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// RunResult is a successful run: the canonical terminal output plus the full
// trace.
type RunResult struct {
	Result map[string]any `json:"result"`
	Trace  []TraceEntry   `json:"trace"`
}

// sortedKeys returns the keys of an output map in sorted order, so traces of
// identical runs compare equal.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
