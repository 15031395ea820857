// Package userquery implements the entry capability. It is the only node
// that receives the caller's initial query instead of predecessor outputs,
// and simply places it on the context for downstream nodes. Config may pin a
// fixed query that overrides the run input.
package userquery

import (
	"context"
	"errors"

	"github.com/vk/queryflow/internal/registry"
	"github.com/vk/queryflow/internal/workflow"
)

// Module registers the user_query capability.
type Module struct{}

func (Module) Register(r *registry.Registry) {
	r.Register(workflow.EntryType, func(id string, config map[string]any) (registry.Capability, error) {
		fixed, _ := config["query"].(string)
		return &component{id: id, fixedQuery: fixed}, nil
	})
}

type component struct {
	id         string
	fixedQuery string
}

func (c *component) Run(_ context.Context, input map[string]any) (map[string]any, error) {
	query := c.fixedQuery
	if query == "" {
		query, _ = input["query"].(string)
	}
	if query == "" {
		return nil, errors.New("no query provided")
	}
	return map[string]any{"query": query}, nil
}
