// Package registry provides the central glue between node type identifiers
// and the Go code that executes them.
//
// The Registry maps a node type (e.g. "llm_engine") to a factory producing a
// runnable Capability from a node id and its static config. It is the
// engine's only extension point: adding a node type means registering one
// more factory, with no change to validator, scheduler or engine logic. The
// validator's allowed-type set is always taken from KnownTypes, so the two
// can never drift apart.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Capability is the uniform contract every node type implements: one
// invocation taking the node's assembled input and producing its output map.
// Implementations must honor ctx cancellation on a best-effort basis.
type Capability interface {
	Run(ctx context.Context, input map[string]any) (map[string]any, error)
}

// Factory builds a Capability instance for one node from its id and static
// configuration.
type Factory func(id string, config map[string]any) (Capability, error)

// Module is implemented by packages that contribute capabilities to a
// registry at bootstrap.
type Module interface {
	Register(r *Registry)
}

type entry struct {
	factory     Factory
	rateLimited bool
}

// Registry holds the registered capability factories for one application
// instance.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// Option modifies how a type is registered.
type Option func(*entry)

// RateLimited marks a type as subject to the engine's shared permit pool.
func RateLimited() Option {
	return func(e *entry) { e.rateLimited = true }
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register binds a node type identifier to a factory. Registering the same
// type twice is a programmer error and panics, matching bootstrap-time
// expectations: the process should not come up with an ambiguous registry.
func (r *Registry) Register(typeID string, factory Factory, opts ...Option) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[typeID]; exists {
		panic(fmt.Sprintf("capability type '%s' already registered", typeID))
	}
	e := entry{factory: factory}
	for _, opt := range opts {
		opt(&e)
	}
	r.entries[typeID] = e
}

// Create instantiates the capability for one node.
func (r *Registry) Create(typeID, id string, config map[string]any) (Capability, error) {
	r.mu.RLock()
	e, ok := r.entries[typeID]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown capability type '%s'", typeID)
	}
	return e.factory(id, config)
}

// KnownTypes returns the sorted set of registered type identifiers.
func (r *Registry) KnownTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.entries))
	for t := range r.entries {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// IsRateLimited reports whether the given type must hold a permit from the
// engine's shared pool while running.
func (r *Registry) IsRateLimited(typeID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[typeID].rateLimited
}
