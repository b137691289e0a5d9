package depgraph

import (
	"strings"

	"github.com/codewithboateng/modlint/internal/ir"
)

type visitState uint8

const (
	stateVisiting visitState = iota + 1
	stateDone
)

// FindCycles walks the graph depth-first in lexical order and reports each
// back edge as the stack suffix starting at its target. A node is reported
// in at most one cycle; edges to missing documents are ignored.
func FindCycles(g *Graph) []ir.Cycle {
	states := make(map[string]visitState)
	reported := make(map[string]bool)
	var stack []string
	var cycles []ir.Cycle

	var visit func(id string)
	visit = func(id string) {
		states[id] = stateVisiting
		stack = append(stack, id)
		for _, next := range g.resolved(id) {
			switch states[next] {
			case stateVisiting:
				if c, ok := cycleFrom(stack, next, reported); ok {
					cycles = append(cycles, c)
				}
			case stateDone:
			default:
				visit(next)
			}
		}
		stack = stack[:len(stack)-1]
		states[id] = stateDone
	}

	for _, id := range g.Nodes() {
		if states[id] == 0 {
			visit(id)
		}
	}
	return cycles
}

func cycleFrom(stack []string, start string, reported map[string]bool) (ir.Cycle, bool) {
	i := len(stack) - 1
	for i >= 0 && stack[i] != start {
		i--
	}
	if i < 0 {
		return ir.Cycle{}, false
	}
	nodes := append([]string(nil), stack[i:]...)
	for _, n := range nodes {
		if reported[n] {
			return ir.Cycle{}, false
		}
	}
	for _, n := range nodes {
		reported[n] = true
	}
	return ir.Cycle{Nodes: nodes, Description: DescribeCycle(nodes)}, true
}

// DescribeCycle renders a cycle with its closing edge, e.g. "a -> b -> a".
func DescribeCycle(nodes []string) string {
	if len(nodes) == 0 {
		return ""
	}
	return strings.Join(append(append([]string(nil), nodes...), nodes[0]), " -> ")
}
