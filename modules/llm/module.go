// Package llm implements the llm_engine capability: it builds a
// context-grounded prompt from its input and asks the injected Generator for
// an answer. The capability is registered as rate-limited, so the engine
// gates it through the shared permit pool.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vk/queryflow/internal/llmclient"
	"github.com/vk/queryflow/internal/registry"
)

// Type is the node type identifier this module registers.
const Type = "llm_engine"

const (
	defaultModel       = "gpt-4.1-mini"
	defaultTemperature = 0.0
	defaultMaxTokens   = 800

	systemPrompt = "You are a helpful AI assistant. Use the provided context to answer questions accurately."
)

// Module registers the llm_engine capability around an injected Generator.
type Module struct {
	Generator llmclient.Generator
	// DefaultModel, when set, replaces the built-in default for nodes whose
	// config does not name a model.
	DefaultModel string
}

func (m Module) Register(r *registry.Registry) {
	r.Register(Type, func(id string, config map[string]any) (registry.Capability, error) {
		if m.Generator == nil {
			return nil, errors.New("llm_engine: no generator configured")
		}
		model := defaultModel
		if m.DefaultModel != "" {
			model = m.DefaultModel
		}
		c := &component{
			id:          id,
			generator:   m.Generator,
			model:       model,
			temperature: defaultTemperature,
			maxTokens:   defaultMaxTokens,
		}
		if v, ok := config["model"].(string); ok && v != "" {
			c.model = v
		}
		if v, ok := floatConfig(config, "temperature"); ok {
			c.temperature = v
		}
		if v, ok := floatConfig(config, "max_tokens"); ok {
			if v < 1 {
				return nil, fmt.Errorf("llm_engine: max_tokens must be positive, got %v", v)
			}
			c.maxTokens = int(v)
		}
		return c, nil
	}, registry.RateLimited())
}

type component struct {
	id          string
	generator   llmclient.Generator
	model       string
	temperature float64
	maxTokens   int
}

func (c *component) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	query, _ := input["query"].(string)
	if query == "" {
		return nil, errors.New("input must contain 'query'")
	}

	docs, _ := input["context"].([]any)
	prompt := buildPrompt(query, docs)

	answer, err := c.generator.Generate(ctx, llmclient.Request{
		Model:       c.model,
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("llm generation failed: %w", err)
	}

	sources := make([]any, 0, len(docs))
	for _, d := range docs {
		if doc, ok := d.(map[string]any); ok {
			if id, ok := doc["id"].(string); ok {
				sources = append(sources, id)
			}
		}
	}

	return map[string]any{
		"answer":  strings.TrimSpace(answer),
		"sources": sources,
	}, nil
}

// buildPrompt grounds the question in the retrieved documents, when any.
func buildPrompt(query string, docs []any) string {
	var parts []string
	for _, d := range docs {
		if doc, ok := d.(map[string]any); ok {
			if content, ok := doc["content"].(string); ok && content != "" {
				parts = append(parts, content)
			}
		}
	}
	if len(parts) == 0 {
		return query
	}
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", strings.Join(parts, "\n\n"), query)
}

// floatConfig reads a numeric config value that may arrive as a JSON
// float64, an HCL-decoded float64, or a plain int.
func floatConfig(config map[string]any, key string) (float64, bool) {
	switch v := config[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
