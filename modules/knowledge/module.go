// Package knowledge implements the knowledge_base capability: it takes the
// query from its input, asks the injected Retriever for the top_k most
// relevant documents, and emits them as retrieval context for downstream
// generation.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/vk/queryflow/internal/registry"
	"github.com/vk/queryflow/internal/retrieval"
)

// Type is the node type identifier this module registers.
const Type = "knowledge_base"

const defaultTopK = 3

// Module registers the knowledge_base capability around an injected
// Retriever.
type Module struct {
	Retriever retrieval.Retriever
}

func (m Module) Register(r *registry.Registry) {
	r.Register(Type, func(id string, config map[string]any) (registry.Capability, error) {
		if m.Retriever == nil {
			return nil, errors.New("knowledge_base: no retriever configured")
		}
		topK := defaultTopK
		if raw, present := config["top_k"]; present {
			v, ok := intConfig(config, "top_k")
			if !ok {
				return nil, fmt.Errorf("knowledge_base: top_k must be an integer, got %v", raw)
			}
			if v <= 0 {
				return nil, fmt.Errorf("knowledge_base: top_k must be positive, got %d", v)
			}
			topK = v
		}
		return &component{id: id, retriever: m.Retriever, topK: topK}, nil
	})
}

type component struct {
	id        string
	retriever retrieval.Retriever
	topK      int
}

func (c *component) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	query, _ := input["query"].(string)
	if query == "" {
		return nil, errors.New("input must contain 'query'")
	}

	docs, err := c.retriever.Search(ctx, query, c.topK)
	if err != nil {
		return nil, fmt.Errorf("knowledge base search failed: %w", err)
	}

	// Context entries stay as generic maps so merging and JSON encoding
	// behave uniformly across capabilities.
	contextDocs := make([]any, len(docs))
	sources := make([]any, len(docs))
	for i, d := range docs {
		contextDocs[i] = map[string]any{
			"id":      d.ID,
			"content": d.Content,
			"score":   d.Score,
		}
		sources[i] = d.ID
	}

	return map[string]any{
		"query":   query,
		"context": contextDocs,
		"sources": sources,
	}, nil
}

// intConfig reads an integer config value that may arrive as a JSON float64,
// an HCL-decoded float64, or a plain int. Non-integral floats do not qualify.
func intConfig(config map[string]any, key string) (int, bool) {
	switch v := config[key].(type) {
	case int:
		return v, true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}
