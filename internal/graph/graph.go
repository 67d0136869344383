package graph

import (
	"sort"
	"strings"

	"github.com/kmualim/atac-seq-pipeline/pkg/model"
)

// Graph is the complete, immutable task dependency graph for one run. All
// shape-determining values (entry type, replicate count, flags) are resolved
// before construction; nothing branches on them afterwards. Only the
// scheduler's status table mutates during execution.
type Graph struct {
	EntryType      model.EntryType
	ReplicateCount int
	TrueRepOnly    bool
	EnableIDR      bool

	Nodes map[string]*model.TaskNode
	// Order is a deterministic topological order over Nodes.
	Order []string
	// Pairs is the PairGenerator output the comparison subtree was built from.
	Pairs [][2]int
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id string) *model.TaskNode {
	return g.Nodes[id]
}

// Dependents returns the reverse adjacency: node ID → IDs that depend on it,
// each list sorted for determinism.
func (g *Graph) Dependents() map[string][]string {
	out := make(map[string][]string, len(g.Nodes))
	for id, n := range g.Nodes {
		for _, dep := range n.DependsOn {
			out[dep] = append(out[dep], id)
		}
	}
	for id := range out {
		sort.Strings(out[id])
	}
	return out
}

// topoSort orders the graph with Kahn's algorithm, using sorted queues so
// the order is deterministic. A cycle is an internal invariant violation
// and yields a GraphBuildError.
func (g *Graph) topoSort() error {
	inDegree := make(map[string]int, len(g.Nodes))
	forward := make(map[string][]string, len(g.Nodes))
	for id := range g.Nodes {
		inDegree[id] = 0
	}
	for id, n := range g.Nodes {
		for _, dep := range n.DependsOn {
			forward[dep] = append(forward[dep], id)
			inDegree[id]++
		}
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(g.Nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		succs := forward[id]
		sort.Strings(succs)
		for _, succ := range succs {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
		sort.Strings(queue)
	}

	if len(order) != len(g.Nodes) {
		var cycle []string
		for id, deg := range inDegree {
			if deg > 0 {
				cycle = append(cycle, id)
			}
		}
		sort.Strings(cycle)
		return &model.GraphBuildError{Msg: "dependency cycle involving: " + strings.Join(cycle, ", ")}
	}

	g.Order = order
	return nil
}
