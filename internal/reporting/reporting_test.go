package reporting

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithboateng/modlint/internal/ir"
)

func report(id string, findings []ir.Finding, cycles []ir.Cycle, missing []string) *ir.Report {
	r := &ir.Report{
		ID:     id,
		Source: "/mods/Test/ModuleData",
		Files: []ir.FileResult{
			{Document: "items", Category: "items", Findings: findings, Dependencies: ir.Dependencies{All: append([]string{"skills"}, missing...), Missing: missing}},
			{Document: "skills", Category: "skills"},
		},
		Edges:  []ir.Edge{{From: "items", To: "skills", Origins: []ir.Origin{ir.OriginPredefined}}},
		Cycles: cycles,
	}
	for _, m := range missing {
		r.Edges = append(r.Edges, ir.Edge{From: "items", To: m, Origins: []ir.Origin{ir.OriginContent}, Missing: true})
	}
	r.Recount()
	return r
}

func finding(rule, element, sev, msg string) ir.Finding {
	return ir.Finding{ID: rule + "-" + element, RuleID: rule, Document: "items", Element: element, Severity: ir.Severity(sev), Message: msg, Evidence: "e=" + element}
}

func TestCompare(t *testing.T) {
	base := report("base", []ir.Finding{
		finding("ITEM-VALUE-RANGE", "item_a", "ERROR", "bad"),
		finding("ID-FORMAT", "a-b", "WARNING", "bad id"),
		finding("ITEM-WEIGHT-RANGE", "item_c", "WARNING", "heavy"),
	}, []ir.Cycle{{Nodes: []string{"b", "a"}}}, []string{"foo"})
	head := report("head", []ir.Finding{
		finding("ITEM-VALUE-RANGE", "item_a", "ERROR", "bad"),
		finding("ITEM-WEIGHT-RANGE", "item_c", "ERROR", "too heavy"),
		finding("ITEM-TYPE-ENUM", "item_d", "ERROR", "type"),
	}, []ir.Cycle{{Nodes: []string{"a", "b"}}, {Nodes: []string{"x", "y"}}}, []string{"bar"})

	d := Compare(base, head)
	assert.Equal(t, DiffSummary{NewCount: 1, RemovedCount: 1, ChangedCount: 1}, d.Summary)
	assert.Equal(t, "ITEM-TYPE-ENUM", d.New[0].RuleID)
	assert.Equal(t, "ID-FORMAT", d.Removed[0].RuleID)
	assert.Equal(t, []string{"severity", "message"}, d.Changed[0].Changed)
	// rotations of the same cycle pair up
	assert.Equal(t, []string{"x -> y -> x"}, d.Cycles.Introduced)
	assert.Empty(t, d.Cycles.Resolved)
	assert.Equal(t, []string{"items -> bar"}, d.Missing.Introduced)
	assert.Equal(t, []string{"items -> foo"}, d.Missing.Resolved)
	assert.False(t, d.BaseValid)
}

func TestWriters(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports")
	r := report("run-1", []ir.Finding{finding("REFERENCE-INTEGRITY", "<slot>", "ERROR", `unknown item "item_axe"`)}, []ir.Cycle{{Nodes: []string{"a", "b"}, Description: "a -> b -> a"}}, []string{"foo"})
	r.Suggestions = []ir.FixSuggestion{{Category: "circular dependency", Priority: ir.PriorityCritical, Description: "cycles", Steps: []string{"remove cycle: a -> b -> a"}}}

	jp, err := WriteJSON(r.ID, out, r)
	require.NoError(t, err)
	b, err := os.ReadFile(jp)
	require.NoError(t, err)
	var back ir.Report
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, r.Totals, back.Totals)

	hp, err := WriteHTML(r.ID, out, r)
	require.NoError(t, err)
	b, err = os.ReadFile(hp)
	require.NoError(t, err)
	page := string(b)
	assert.Contains(t, page, "&lt;slot&gt;")
	assert.NotContains(t, page, "<slot>")
	assert.Contains(t, page, "remove cycle: a -&gt; b -&gt; a")
	assert.Contains(t, page, "invalid")

	dp, err := WriteDiffJSON(out, r, r)
	require.NoError(t, err)
	assert.Equal(t, "diff_run-1__run-1.json", filepath.Base(dp))
	var d Diff
	b, err = os.ReadFile(dp)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &d))
	assert.Equal(t, DiffSummary{}, d.Summary)
}

func TestDOT(t *testing.T) {
	r := report("g", nil, []ir.Cycle{{Nodes: []string{"items", "skills"}}}, []string{"foo"})
	r.Edges = append(r.Edges, ir.Edge{From: "skills", To: "items", Origins: []ir.Origin{ir.OriginSchema}})

	var buf bytes.Buffer
	require.NoError(t, DOT(&buf, r))
	g := buf.String()
	assert.True(t, strings.HasPrefix(g, "digraph dependencies {"))
	assert.Contains(t, g, `"items" -> "skills" [label="predefined", color=red];`)
	assert.Contains(t, g, `"skills" -> "items" [label="schema", color=red];`)
	assert.Contains(t, g, `"items" -> "foo" [label="content", style=dashed];`)
	assert.Contains(t, g, `"foo" [style=dashed, color=gray];`)

	p, err := WriteDOT("g", t.TempDir(), r)
	require.NoError(t, err)
	assert.Equal(t, "g.dot", filepath.Base(p))
}

func TestDOTQuoteEscapes(t *testing.T) {
	assert.Equal(t, `"plain"`, quote("plain"))
	assert.Equal(t, `"a\\b"`, quote(`a\b`))
	assert.Equal(t, `"say \"hi\""`, quote(`say "hi"`))
	assert.Equal(t, `"x\\\"y"`, quote(`x\"y`))
	assert.Equal(t, `"one\ntwo\nthree"`, quote("one\ntwo\r\nthree"))
}
