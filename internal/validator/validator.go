// Package validator proves that a workflow definition is well-formed before
// anything runs. Validation is phased: shape, then structural integrity,
// then graph properties. A phase only runs when the previous one found zero
// problems, because its checks presume the earlier invariants. Within a
// phase every violation is collected; validation never stops at the first
// error, so a caller can fix a whole submission in one round trip.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vk/queryflow/internal/scheduler"
	"github.com/vk/queryflow/internal/workflow"
)

// Graph size limits. Oversized graphs are rejected outright instead of being
// processed, bounding both validation and execution cost.
const (
	MaxNodes = 50
	MaxEdges = 200
)

// Error is one validation violation, addressed by a path-like field locator
// such as "nodes[2].id".
type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is the aggregated set of violations found in one validation pass.
// It implements error so the engine can surface it directly.
type Errors []Error

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, item := range e {
		msgs[i] = fmt.Sprintf("%s: %s", item.Field, item.Message)
	}
	return "workflow validation failed: " + strings.Join(msgs, "; ")
}

// Validate checks def against every invariant the engine relies on. The
// allowed node types are the registry's known-type set, passed in so the two
// can never disagree. A nil return means the definition may be executed.
func Validate(def *workflow.Definition, knownTypes []string) Errors {
	if errs := validateShape(def); len(errs) > 0 {
		return errs
	}
	if errs := validateStructure(def, knownTypes); len(errs) > 0 {
		return errs
	}
	if errs := validateGraph(def); len(errs) > 0 {
		return errs
	}
	return nil
}

// validateShape checks that the definition carries both required lists.
func validateShape(def *workflow.Definition) Errors {
	var errs Errors
	if def == nil {
		return Errors{{Field: "workflow", Message: "workflow definition is missing"}}
	}
	if def.Nodes == nil {
		errs = append(errs, Error{Field: "nodes", Message: "missing 'nodes' list"})
	}
	if def.Edges == nil {
		errs = append(errs, Error{Field: "edges", Message: "missing 'edges' list"})
	}
	return errs
}

// validateStructure checks limits, node fields, id uniqueness and edge
// references.
func validateStructure(def *workflow.Definition, knownTypes []string) Errors {
	var errs Errors

	if len(def.Nodes) > MaxNodes {
		errs = append(errs, Error{Field: "nodes", Message: fmt.Sprintf("too many nodes (max %d)", MaxNodes)})
	}
	if len(def.Edges) > MaxEdges {
		errs = append(errs, Error{Field: "edges", Message: fmt.Sprintf("too many edges (max %d)", MaxEdges)})
	}

	known := make(map[string]struct{}, len(knownTypes))
	for _, t := range knownTypes {
		known[t] = struct{}{}
	}

	seen := make(map[string]struct{}, len(def.Nodes))
	for i, n := range def.Nodes {
		if n.ID == "" {
			errs = append(errs, Error{Field: fmt.Sprintf("nodes[%d].id", i), Message: "node must have a non-empty string 'id'"})
		} else {
			if _, dup := seen[n.ID]; dup {
				errs = append(errs, Error{Field: fmt.Sprintf("nodes[%d].id", i), Message: fmt.Sprintf("duplicate node id '%s'", n.ID)})
			}
			seen[n.ID] = struct{}{}
		}
		if _, ok := known[n.Type]; !ok {
			errs = append(errs, Error{Field: fmt.Sprintf("nodes[%d].type", i), Message: fmt.Sprintf("invalid or missing node type '%s'", n.Type)})
		}
	}

	for i, e := range def.Edges {
		switch {
		case e.From == "":
			errs = append(errs, Error{Field: fmt.Sprintf("edges[%d].from", i), Message: "missing 'from' node id"})
		default:
			if _, ok := seen[e.From]; !ok {
				errs = append(errs, Error{Field: fmt.Sprintf("edges[%d].from", i), Message: fmt.Sprintf("unknown node id '%s'", e.From)})
			}
		}
		switch {
		case e.To == "":
			errs = append(errs, Error{Field: fmt.Sprintf("edges[%d].to", i), Message: "missing 'to' node id"})
		default:
			if _, ok := seen[e.To]; !ok {
				errs = append(errs, Error{Field: fmt.Sprintf("edges[%d].to", i), Message: fmt.Sprintf("unknown node id '%s'", e.To)})
			}
		}
	}

	return errs
}

// validateGraph checks entry/terminal node counts, reachability from the
// entry node, and acyclicity. Acyclicity reuses the scheduler's Kahn order:
// an order shorter than the node count proves a cycle, so the validator and
// the scheduler can never disagree about what is runnable.
func validateGraph(def *workflow.Definition) Errors {
	var errs Errors

	var entryIDs, terminalIDs []string
	for _, n := range def.Nodes {
		switch n.Type {
		case workflow.EntryType:
			entryIDs = append(entryIDs, n.ID)
		case workflow.TerminalType:
			terminalIDs = append(terminalIDs, n.ID)
		}
	}

	if len(entryIDs) != 1 {
		errs = append(errs, Error{
			Field:   workflow.EntryType,
			Message: fmt.Sprintf("workflow must contain exactly one '%s' node, found %d", workflow.EntryType, len(entryIDs)),
		})
	}
	if len(terminalIDs) < 1 {
		errs = append(errs, Error{
			Field:   workflow.TerminalType,
			Message: fmt.Sprintf("workflow must contain at least one '%s' node", workflow.TerminalType),
		})
	}

	if len(entryIDs) > 0 {
		if unreachable := unreachableFrom(def, entryIDs[0]); len(unreachable) > 0 {
			errs = append(errs, Error{
				Field:   "connectivity",
				Message: fmt.Sprintf("unreachable nodes from '%s': %s", entryIDs[0], strings.Join(unreachable, ", ")),
			})
		}
	}

	if order := scheduler.Order(def); len(order) < len(def.Nodes) {
		errs = append(errs, Error{Field: "workflow", Message: "cycle detected in workflow (graph is not a DAG)"})
	}

	return errs
}

// unreachableFrom returns the sorted ids of nodes that a forward traversal
// starting at start never visits.
func unreachableFrom(def *workflow.Definition, start string) []string {
	successors := make(map[string][]string, len(def.Nodes))
	for _, e := range def.Edges {
		successors[e.From] = append(successors[e.From], e.To)
	}

	reached := make(map[string]struct{}, len(def.Nodes))
	stack := []string{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := reached[cur]; ok {
			continue
		}
		reached[cur] = struct{}{}
		stack = append(stack, successors[cur]...)
	}

	var unreachable []string
	for _, n := range def.Nodes {
		if _, ok := reached[n.ID]; !ok {
			unreachable = append(unreachable, n.ID)
		}
	}
	sort.Strings(unreachable)
	return unreachable
}
