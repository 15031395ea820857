// Package llmclient defines the abstract generation contract consumed by the
// llm_engine capability, plus two implementations: an HTTP client for a
// chat-completions style provider, and a deterministic mock for tests and
// offline runs. The client is constructed once at bootstrap and injected
// into the capability; nothing here holds global state.
package llmclient

import (
	"context"
	"fmt"
)

// Request is one generation request.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Generator produces text for a prompt. It is the rate-limited external
// collaborator: the engine gates invocations through its permit pool, and
// bounds each call with the node timeout via ctx.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Mock is a deterministic Generator that echoes a canned reply derived from
// the prompt. Useful for tests and for running workflows without provider
// credentials.
type Mock struct {
	// Reply, when set, is returned verbatim for every request.
	Reply string
}

func (m *Mock) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Reply != "" {
		return m.Reply, nil
	}
	return fmt.Sprintf("mock answer for: %s", req.Prompt), nil
}
