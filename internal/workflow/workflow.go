// Package workflow defines the wire-level data model for a workflow
// definition: a directed graph of typed nodes. A Definition is decoded once
// from its JSON (or HCL) representation and is treated as read-only by the
// validator, the scheduler and the engine.
package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Node type identifiers with a designated role in every workflow. The entry
// node is the unique node that receives the caller's initial query; a
// terminal node produces the workflow's final result.
const (
	EntryType    = "user_query"
	TerminalType = "output"
)

// Node is a single unit in the workflow graph. Type selects the capability
// that will execute it; Config carries capability-specific settings.
type Node struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Config map[string]any `json:"config"`
}

// Edge is a directed dependency between two nodes, by id.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Definition is a complete workflow graph as submitted by a caller.
type Definition struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// DecodeJSON parses a workflow definition from its JSON payload. Unknown
// fields are rejected so that a misspelled key fails loudly instead of
// silently producing an empty graph.
func DecodeJSON(data []byte) (*Definition, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("decode workflow definition: %w", err)
	}
	return &def, nil
}

// NodesByID returns a lookup map over the definition's nodes. Duplicate ids
// keep the first occurrence; the validator reports duplicates separately.
func (d *Definition) NodesByID() map[string]Node {
	byID := make(map[string]Node, len(d.Nodes))
	for _, n := range d.Nodes {
		if _, ok := byID[n.ID]; ok {
			continue
		}
		byID[n.ID] = n
	}
	return byID
}

// Parents returns, for every node id, the ids of its direct predecessors in
// edge-list order. Edge-list order matters: the engine's input merge gives
// precedence to the predecessor whose edge appears later in the list.
func (d *Definition) Parents() map[string][]string {
	parents := make(map[string][]string, len(d.Nodes))
	for _, e := range d.Edges {
		parents[e.To] = append(parents[e.To], e.From)
	}
	return parents
}
