// Package output implements the terminal capability: it takes the generated
// answer plus its sources and shapes the workflow's final payload. The
// "text" format flattens everything into one result string; "json" keeps the
// fields separate.
package output

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/queryflow/internal/registry"
	"github.com/vk/queryflow/internal/workflow"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// Module registers the output capability.
type Module struct{}

func (Module) Register(r *registry.Registry) {
	r.Register(workflow.TerminalType, func(id string, config map[string]any) (registry.Capability, error) {
		format := formatText
		if v, ok := config["format"].(string); ok && v != "" {
			format = v
		}
		if format != formatText && format != formatJSON {
			return nil, fmt.Errorf("output: unsupported format '%s'", format)
		}
		return &component{id: id, format: format}, nil
	})
}

type component struct {
	id     string
	format string
}

func (c *component) Run(_ context.Context, input map[string]any) (map[string]any, error) {
	answer, _ := input["answer"].(string)
	sources := sourceIDs(input["sources"])

	if c.format == formatJSON {
		return map[string]any{
			"answer":  answer,
			"sources": sources,
		}, nil
	}

	result := answer
	if len(sources) > 0 {
		ids := make([]string, len(sources))
		for i, s := range sources {
			ids[i] = fmt.Sprint(s)
		}
		result = fmt.Sprintf("%s\nSources: %s", answer, strings.Join(ids, ", "))
	}
	return map[string]any{"result": result}, nil
}

// sourceIDs normalizes the upstream sources field, which arrives as []any
// after a JSON round trip.
func sourceIDs(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, id := range s {
			out[i] = id
		}
		return out
	default:
		return nil
	}
}
