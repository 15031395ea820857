// Package scheduler computes a deterministic topological order over a
// workflow definition using Kahn's algorithm.
//
// Determinism is part of the contract: the ready queue is seeded in
// node-list order and drained FIFO, and successors are visited in edge-list
// order, so one fixed definition always yields one fixed order regardless of
// map iteration. The validator relies on the same property to prove
// acyclicity: an order shorter than the node count means a cycle.
package scheduler

import "github.com/vk/queryflow/internal/workflow"

// Order returns the node ids of def in topological order. If the graph
// contains a cycle the returned order is shorter than the node count; the
// nodes on the cycle never reach in-degree zero and are omitted.
func Order(def *workflow.Definition) []string {
	inDegree := make(map[string]int, len(def.Nodes))
	successors := make(map[string][]string, len(def.Nodes))
	for _, n := range def.Nodes {
		if _, ok := inDegree[n.ID]; ok {
			continue
		}
		inDegree[n.ID] = 0
	}
	for _, e := range def.Edges {
		successors[e.From] = append(successors[e.From], e.To)
		inDegree[e.To]++
	}

	// Seed the FIFO queue in node-list order.
	queue := make([]string, 0, len(def.Nodes))
	for _, n := range def.Nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	order := make([]string, 0, len(def.Nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, succ := range successors[id] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	return order
}
