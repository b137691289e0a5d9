package depgraph

import (
	"sort"

	"github.com/codewithboateng/modlint/internal/ir"
)

// Plan returns a load order in which every dependency precedes its
// dependents. Nodes that never become ready, cycle members and anything
// depending on them, go to Excluded: no safe order exists for them until
// the cycle is broken.
func Plan(g *Graph) ir.LoadOrder {
	nodes := g.Nodes()
	pending := make(map[string]int, len(nodes))
	dependents := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		deps := g.resolved(n)
		pending[n] = len(deps)
		for _, d := range deps {
			dependents[d] = append(dependents[d], n)
		}
	}

	var ready []string
	for _, n := range nodes {
		if pending[n] == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]string, 0, len(nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, dep := range dependents[n] {
			pending[dep]--
			if pending[dep] == 0 {
				ready = insertSorted(ready, dep)
			}
		}
	}

	var excluded []string
	for _, n := range nodes {
		if pending[n] > 0 {
			excluded = append(excluded, n)
		}
	}
	return ir.LoadOrder{Order: order, Excluded: excluded}
}

func insertSorted(list []string, v string) []string {
	i := sort.SearchStrings(list, v)
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}
