// Package audit defines the collaborator that records workflow runs for
// later inspection. Recording is strictly best-effort from the engine's
// point of view: a Recorder failure is logged and discarded, and must never
// change the result of an otherwise-successful run.
package audit

import (
	"context"
	"sync"

	"github.com/vk/queryflow/internal/ctxlog"
)

// Entry is one recorded run outcome. Exactly one of Result and Error is set.
type Entry struct {
	RunID  string
	Query  string
	Result map[string]any
	Error  string
}

// Recorder persists run outcomes.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// LogRecorder writes run outcomes to the contextual logger. It is the
// default recorder when no persistence is wired in.
type LogRecorder struct{}

func (LogRecorder) Record(ctx context.Context, entry Entry) error {
	logger := ctxlog.FromContext(ctx)
	if entry.Error != "" {
		logger.Info("Run recorded.", "run_id", entry.RunID, "query", entry.Query, "error", entry.Error)
		return nil
	}
	logger.Info("Run recorded.", "run_id", entry.RunID, "query", entry.Query, "result_keys", len(entry.Result))
	return nil
}

// MemoryRecorder keeps entries in memory. Used by tests and one-shot runs.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *MemoryRecorder) Record(_ context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (r *MemoryRecorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
