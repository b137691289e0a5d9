package depgraph

import (
	"sort"

	"github.com/codewithboateng/modlint/internal/ir"
)

// Graph is a directed "depends on" graph keyed by document id. Edge targets
// need not be nodes; such edges are missing dependencies.
type Graph struct {
	nodes map[string]struct{}
	edges map[string]map[string][]ir.Origin
}

func NewGraph(nodes ...string) *Graph {
	g := &Graph{
		nodes: make(map[string]struct{}, len(nodes)),
		edges: make(map[string]map[string][]ir.Origin),
	}
	for _, n := range nodes {
		g.AddNode(n)
	}
	return g
}

func (g *Graph) AddNode(id string) {
	g.nodes[id] = struct{}{}
}

// AddEdge records from -> to. Repeated edges collapse; their origins accumulate.
func (g *Graph) AddEdge(from, to string, origins ...ir.Origin) {
	g.AddNode(from)
	out, ok := g.edges[from]
	if !ok {
		out = make(map[string][]ir.Origin)
		g.edges[from] = out
	}
	cur := out[to]
	for _, o := range origins {
		if !hasOrigin(cur, o) {
			cur = append(cur, o)
		}
	}
	out[to] = cur
}

func hasOrigin(list []ir.Origin, o ir.Origin) bool {
	for _, x := range list {
		if x == o {
			return true
		}
	}
	return false
}

func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns every node in lexical order.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Dependencies returns every edge target of id, present or not, in lexical order.
func (g *Graph) Dependencies(id string) []string {
	out := make([]string, 0, len(g.edges[id]))
	for to := range g.edges[id] {
		out = append(out, to)
	}
	sort.Strings(out)
	return out
}

// resolved returns the edge targets of id that are nodes.
func (g *Graph) resolved(id string) []string {
	var out []string
	for _, to := range g.Dependencies(id) {
		if g.HasNode(to) {
			out = append(out, to)
		}
	}
	return out
}

// Missing returns the edge targets of id that are not nodes.
func (g *Graph) Missing(id string) []string {
	var out []string
	for _, to := range g.Dependencies(id) {
		if !g.HasNode(to) {
			out = append(out, to)
		}
	}
	return out
}

// Origins returns how the edge from -> to was inferred.
func (g *Graph) Origins(from, to string) []ir.Origin {
	return append([]ir.Origin(nil), g.edges[from][to]...)
}

// Edges lists every logical edge ordered by (from, to).
func (g *Graph) Edges() []ir.Edge {
	var out []ir.Edge
	for _, from := range g.Nodes() {
		for _, to := range g.Dependencies(from) {
			out = append(out, ir.Edge{
				From:    from,
				To:      to,
				Origins: g.Origins(from, to),
				Missing: !g.HasNode(to),
			})
		}
	}
	return out
}

// Dependents returns the nodes having an edge to id, in lexical order.
func (g *Graph) Dependents(id string) []string {
	var out []string
	for _, from := range g.Nodes() {
		if _, ok := g.edges[from][id]; ok {
			out = append(out, from)
		}
	}
	return out
}
