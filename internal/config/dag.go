package config

import (
	"fmt"

	"github.com/nilgate/gate/internal/domain"
)

// detectCycle checks whether the node wiring implied by GraphConfig.Nodes
// (an edge from the node producing a port to every node consuming it) would
// introduce a cycle, using the same three-color DFS as
// ahrav-go-gavel/internal/application's hasCycleUnsafe. This is the one
// place cycle detection has real work to do: unlike engine.Graph (acyclic
// by construction, since a node can only reference already-existing ports),
// a declarative config can list nodes in any order, including one that
// would close a loop.
func detectCycle(cfg *GraphConfig) error {
	producer := make(map[string]string, len(cfg.Nodes)) // port ID -> producing node ID
	for _, n := range cfg.Nodes {
		for _, out := range n.Outputs {
			producer[out] = n.ID
		}
	}

	edges := make(map[string][]string, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		for _, in := range n.Inputs {
			if from, ok := producer[in]; ok && from != n.ID {
				edges[from] = append(edges[from], n.ID)
			}
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	colors := make(map[string]int, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		colors[n.ID] = white
	}

	var cycleNode string
	var dfs func(id string) bool
	dfs = func(id string) bool {
		colors[id] = gray
		for _, next := range edges[id] {
			if colors[next] == gray {
				cycleNode = next
				return true
			}
			if colors[next] == white && dfs(next) {
				return true
			}
		}
		colors[id] = black
		return false
	}

	for _, n := range cfg.Nodes {
		if colors[n.ID] == white && dfs(n.ID) {
			return domain.NewConfigError("graph",
				fmt.Sprintf("wiring introduces a cycle at node %q", cycleNode), domain.ErrCycle)
		}
	}
	return nil
}

// topoOrder orders cfg.Nodes so that every node producing a port appears
// before every node consuming it, using Kahn's algorithm — the same
// approach as ahrav-go-gavel/internal/application's TopologicalSort.
// GraphLoader needs this because, unlike engine.Graph's append-only
// construction, a YAML file may declare nodes in any order. detectCycle
// must have already confirmed the wiring is acyclic; topoOrder does not
// re-check.
func topoOrder(cfg *GraphConfig) []NodeConfig {
	producer := make(map[string]string, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		for _, out := range n.Outputs {
			producer[out] = n.ID
		}
	}

	byID := make(map[string]NodeConfig, len(cfg.Nodes))
	inDegree := make(map[string]int, len(cfg.Nodes))
	edges := make(map[string][]string, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		byID[n.ID] = n
		inDegree[n.ID] = 0
	}
	for _, n := range cfg.Nodes {
		for _, in := range n.Inputs {
			if from, ok := producer[in]; ok && from != n.ID {
				edges[from] = append(edges[from], n.ID)
				inDegree[n.ID]++
			}
		}
	}

	queue := make([]string, 0, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	result := make([]NodeConfig, 0, len(cfg.Nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		result = append(result, byID[id])
		for _, next := range edges[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return result
}
