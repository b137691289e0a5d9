package depgraph

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithboateng/modlint/internal/ir"
	"github.com/codewithboateng/modlint/internal/parser"
	"github.com/codewithboateng/modlint/internal/xref"
)

func fromAdjacency(adj map[string][]string) *Graph {
	g := NewGraph()
	for from, tos := range adj {
		g.AddNode(from)
		for _, to := range tos {
			g.AddEdge(from, to, ir.OriginPredefined)
		}
	}
	return g
}

func position(order []string) map[string]int {
	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	return pos
}

func TestTwoNodeCycle(t *testing.T) {
	g := fromAdjacency(map[string][]string{"A": {"B"}, "B": {"A"}})

	cycles := FindCycles(g)
	require.Len(t, cycles, 1)
	assert.ElementsMatch(t, []string{"A", "B"}, cycles[0].Nodes)
	assert.Equal(t, "A -> B -> A", cycles[0].Description)

	lo := Plan(g)
	assert.Empty(t, lo.Order)
	assert.Equal(t, []string{"A", "B"}, lo.Excluded)
}

func TestDisjointCyclesAllReported(t *testing.T) {
	g := fromAdjacency(map[string][]string{
		"a": {"b"}, "b": {"a"},
		"c": {"d"}, "d": {"e"}, "e": {"c"},
		"f": {},
	})
	cycles := FindCycles(g)
	require.Len(t, cycles, 2)
	assert.Equal(t, []string{"a", "b"}, cycles[0].Nodes)
	assert.Equal(t, []string{"c", "d", "e"}, cycles[1].Nodes)

	lo := Plan(g)
	assert.Equal(t, []string{"f"}, lo.Order)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, lo.Excluded)
}

func TestNodeReportedInAtMostOneCycle(t *testing.T) {
	// a<->b and b<->c share b
	g := fromAdjacency(map[string][]string{"a": {"b"}, "b": {"a", "c"}, "c": {"b"}})
	cycles := FindCycles(g)
	seen := map[string]int{}
	for _, c := range cycles {
		for _, n := range c.Nodes {
			seen[n]++
		}
	}
	for n, k := range seen {
		assert.Equal(t, 1, k, n)
	}
	assert.NotEmpty(t, cycles)
}

func TestDependentsOfCycleAreExcluded(t *testing.T) {
	g := fromAdjacency(map[string][]string{"x": {"a"}, "a": {"b"}, "b": {"a"}, "y": {}})
	lo := Plan(g)
	assert.Equal(t, []string{"y"}, lo.Order)
	assert.Equal(t, []string{"a", "b", "x"}, lo.Excluded)
}

func TestPlanIsDeterministicAndIgnoresMissingTargets(t *testing.T) {
	g := fromAdjacency(map[string][]string{
		"items":           {"crafting_pieces", "item_modifiers"},
		"crafting_pieces": {"crafting_templates"},
		"characters":      {"skills", "faces"},
		"skills":          {},
	})
	lo := Plan(g)
	assert.Equal(t, []string{"crafting_pieces", "items", "skills", "characters"}, lo.Order)
	assert.Empty(t, lo.Excluded)
	pos := position(lo.Order)
	assert.Less(t, pos["crafting_pieces"], pos["items"])
	assert.Less(t, pos["skills"], pos["characters"])
	assert.Equal(t, Plan(g), lo)
	assert.Equal(t, []string{"item_modifiers"}, g.Missing("items"))
}

func randomGraph(r *rand.Rand, n int, p float64, acyclic bool) *Graph {
	g := NewGraph()
	for i := 0; i < n; i++ {
		g.AddNode(fmt.Sprintf("n%02d", i))
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || r.Float64() >= p {
				continue
			}
			if acyclic && j > i {
				continue
			}
			g.AddEdge(fmt.Sprintf("n%02d", i), fmt.Sprintf("n%02d", j), ir.OriginContent)
		}
	}
	return g
}

func TestAcyclicPlanRespectsEveryEdge(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		g := randomGraph(r, 3+r.Intn(15), 0.3, true)
		lo := Plan(g)
		require.Empty(t, lo.Excluded)
		require.Empty(t, FindCycles(g))
		require.ElementsMatch(t, g.Nodes(), lo.Order)
		pos := position(lo.Order)
		for _, e := range g.Edges() {
			assert.Less(t, pos[e.To], pos[e.From], "%s -> %s", e.From, e.To)
		}
	}
}

func TestCyclesIffExcluded(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		g := randomGraph(r, 2+r.Intn(10), 0.15, false)
		cycles := FindCycles(g)
		lo := Plan(g)
		assert.Equal(t, len(cycles) == 0, len(lo.Excluded) == 0, "round %d", round)
		assert.Equal(t, len(g.Nodes()), len(lo.Order)+len(lo.Excluded))
		for _, c := range cycles {
			for _, n := range c.Nodes {
				assert.Contains(t, lo.Excluded, n)
			}
			for i, n := range c.Nodes {
				next := c.Nodes[(i+1)%len(c.Nodes)]
				assert.Contains(t, g.Dependencies(n), next)
			}
		}
	}
}

func TestEdgesCollapseOrigins(t *testing.T) {
	g := NewGraph("a", "b")
	g.AddEdge("a", "b", ir.OriginPredefined)
	g.AddEdge("a", "b", ir.OriginContent, ir.OriginPredefined)
	g.AddEdge("a", "zz", ir.OriginSchema)
	edges := g.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, ir.Edge{From: "a", To: "b", Origins: []ir.Origin{ir.OriginPredefined, ir.OriginContent}}, edges[0])
	assert.True(t, edges[1].Missing)
	assert.Equal(t, []string{"a"}, g.Dependents("b"))
}

func TestMissingSeverity(t *testing.T) {
	assert.Equal(t, ir.SeverityWarning, MissingSeverity([]ir.Origin{ir.OriginContent}))
	assert.Equal(t, ir.SeverityError, MissingSeverity([]ir.Origin{ir.OriginContent, ir.OriginSchema}))
	assert.Equal(t, ir.SeverityError, MissingSeverity([]ir.Origin{ir.OriginPredefined}))
}

func writeCorpus(t *testing.T, files map[string]string) *parser.Corpus {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	c, _, err := parser.Parse(context.Background(), dir, parser.Options{})
	require.NoError(t, err)
	return c
}

func TestBuildFromCorpus(t *testing.T) {
	c := writeCorpus(t, map[string]string{
		"items.xml":           `<Items><Item id="item_a"/></Items>`,
		"crafting_pieces.xml": `<CraftingPieces><CraftingPiece id="craft_blade"/></CraftingPieces>`,
		"x.xml":               `<Root xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:noNamespaceSchemaLocation="foo.xsd"/>`,
		"bad.xml":             `<Root item="item_a">`,
	})
	b := &Builder{Extractor: xref.NewDefault(), Workers: 2}
	res, err := b.Build(context.Background(), c)
	require.NoError(t, err)

	x, ok := res.Extraction("x")
	require.True(t, ok)
	assert.Equal(t, []string{"foo"}, x.Missing)

	items, _ := res.Extraction("items")
	assert.Equal(t, []string{"item_modifiers", "item_usage_sets"}, items.Missing)
	assert.Contains(t, res.Graph.Dependencies("items"), "crafting_pieces")

	bad, _ := res.Extraction("bad")
	assert.Error(t, bad.Err)
	assert.Empty(t, res.Graph.Dependencies("bad"))
	assert.True(t, res.Graph.HasNode("bad"))

	again, err := b.Build(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, res.Graph.Nodes(), again.Graph.Nodes())
	assert.Equal(t, res.Graph.Edges(), again.Graph.Edges())
}
