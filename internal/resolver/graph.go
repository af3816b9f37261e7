package resolver

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"semindex/pkg/types"
)

// Graph is an arena-style adjacency structure over symbol and resource
// ids. Nodes are keyed by stable string ids, never by object links, so
// traversal detects revisits with a visited set and cycles from recursive
// or mutual calls cannot cause non-termination.
type Graph struct {
	mu sync.RWMutex

	nodes     map[string]GraphNode
	order     []string            // node insertion order
	adjacency map[string][]string // source id -> target ids
	edges     []types.Edge
	edgeSeen  map[types.Edge]bool
}

// GraphNode is one vertex: an indexed Symbol or an external Resource.
type GraphNode struct {
	ID       string
	Label    string
	Kind     string // symbol or resource kind
	Resource bool
}

// NewGraph builds an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]GraphNode),
		adjacency: make(map[string][]string),
		edgeSeen:  make(map[types.Edge]bool),
	}
}

// AddSymbols registers symbol nodes.
func (g *Graph) AddSymbols(symbols []types.Symbol) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, sym := range symbols {
		g.addNodeLocked(GraphNode{ID: sym.ID, Label: sym.Name, Kind: string(sym.Kind)})
	}
}

// AddResources registers resource nodes.
func (g *Graph) AddResources(resources []types.Resource) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, res := range resources {
		g.addNodeLocked(GraphNode{ID: res.ID, Label: res.Name, Kind: string(res.Kind), Resource: true})
	}
}

// AddEdges registers dependency edges. Edges to unknown targets get a
// placeholder node so traversal never dereferences a missing id.
func (g *Graph) AddEdges(edges []types.Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, edge := range edges {
		if g.edgeSeen[edge] {
			continue
		}
		g.edgeSeen[edge] = true

		for _, id := range []string{edge.SourceID, edge.TargetID} {
			if _, ok := g.nodes[id]; !ok {
				g.addNodeLocked(GraphNode{ID: id, Label: id})
			}
		}

		g.edges = append(g.edges, edge)
		g.adjacency[edge.SourceID] = append(g.adjacency[edge.SourceID], edge.TargetID)
	}
}

func (g *Graph) addNodeLocked(node GraphNode) {
	if _, ok := g.nodes[node.ID]; ok {
		return
	}
	g.nodes[node.ID] = node
	g.order = append(g.order, node.ID)
}

// NodeCount returns the number of registered nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of registered edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// Reachable returns every node id reachable from the given id, excluding
// the start node itself, in breadth-first order.
func (g *Graph) Reachable(fromID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]bool{fromID: true}
	queue := append([]string(nil), g.adjacency[fromID]...)
	var out []string

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		out = append(out, id)
		queue = append(queue, g.adjacency[id]...)
	}
	return out
}

// Cycles returns the strongly connected components that contain a cycle:
// every component of size > 1, plus single nodes with a self edge. Ids
// within a component are sorted.
func (g *Graph) Cycles() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	components := stronglyConnectedComponents(g.order, g.adjacency)

	selfEdges := make(map[string]bool)
	for _, edge := range g.edges {
		if edge.SourceID == edge.TargetID {
			selfEdges[edge.SourceID] = true
		}
	}

	var cycles [][]string
	for _, comp := range components {
		if len(comp) > 1 || (len(comp) == 1 && selfEdges[comp[0]]) {
			cycles = append(cycles, comp)
		}
	}
	return cycles
}

// DOT renders the graph in Graphviz dot format. Symbols render as boxes,
// resources as ellipses; edges are labelled with their relation. Output is
// deterministic: nodes and edges are emitted sorted.
func (g *Graph) DOT() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := append([]string(nil), g.order...)
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")

	for _, id := range ids {
		node := g.nodes[id]
		shape := "box"
		if node.Resource {
			shape = "ellipse"
		}
		fmt.Fprintf(&b, "  %q [label=%q, shape=%s];\n", node.ID, node.Label, shape)
	}

	edges := append([]types.Edge(nil), g.edges...)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].SourceID != edges[j].SourceID {
			return edges[i].SourceID < edges[j].SourceID
		}
		if edges[i].TargetID != edges[j].TargetID {
			return edges[i].TargetID < edges[j].TargetID
		}
		return edges[i].Relation < edges[j].Relation
	})
	for _, edge := range edges {
		fmt.Fprintf(&b, "  %q -> %q [label=%q];\n", edge.SourceID, edge.TargetID, edge.Relation)
	}

	b.WriteString("}\n")
	return b.String()
}

func stronglyConnectedComponents(nodes []string, adjacency map[string][]string) [][]string {
	index := 0
	stack := make([]string, 0, len(nodes))
	onStack := make(map[string]bool, len(nodes))
	indexByNode := make(map[string]int, len(nodes))
	lowLink := make(map[string]int, len(nodes))
	components := make([][]string, 0)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indexByNode[v] = index
		lowLink[v] = index
		index++

		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adjacency[v] {
			if _, seen := indexByNode[w]; !seen {
				strongConnect(w)
				if lowLink[w] < lowLink[v] {
					lowLink[v] = lowLink[w]
				}
			} else if onStack[w] && indexByNode[w] < lowLink[v] {
				lowLink[v] = indexByNode[w]
			}
		}

		if lowLink[v] != indexByNode[v] {
			return
		}

		component := make([]string, 0)
		for {
			last := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[last] = false
			component = append(component, last)
			if last == v {
				break
			}
		}
		sort.Strings(component)
		components = append(components, component)
	}

	for _, node := range nodes {
		if _, seen := indexByNode[node]; !seen {
			strongConnect(node)
		}
	}

	return components
}
