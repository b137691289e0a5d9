package orchestrator

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codewithboateng/modlint/internal/ir"
	"github.com/codewithboateng/modlint/internal/rules"
)

var update = flag.Bool("update", false, "update golden snapshot")

const goldenFile = "testdata/module_snapshot.json"

// mod_items is aliased to the items category so item rules apply without
// pulling in the predefined item dependencies.
var goldenCorpus = map[string]string{
	"mod_items.xml": `<Items>
  <Item id="sword_a" value="120" weight="2.5" Type="OneHandedWeapon"/>
  <Item id="sword_a" value="-5" weight="2.5" Type="OneHandedWeapon"/>
</Items>`,
	"troops.xml": `<NPCCharacters>
  <NPCCharacter id="recruit" level="6">
    <equipment slot="Item0" item="Item.sword_a"/>
    <equipment slot="Item1" item="Item.ghost"/>
  </NPCCharacter>
</NPCCharacters>`,
	"loop_a.xml": schemaDoc("LoopA", "loop_b"),
	"loop_b.xml": schemaDoc("LoopB", "loop_a"),
	"orphan.xml": schemaDoc("Orphan", "not_there"),
}

func TestGoldenModuleSnapshot(t *testing.T) {
	dir := corpusDir(t, goldenCorpus)
	o := newOrchestrator(t, rules.NewSettings("", nil, map[string]string{"mod_items": "items"}))
	r, err := o.RunModule(context.Background(), dir)
	require.NoError(t, err)

	got, err := json.MarshalIndent(normalize(r), "", "  ")
	require.NoError(t, err)

	if *update {
		require.NoError(t, os.MkdirAll(filepath.Dir(goldenFile), 0o755))
		require.NoError(t, os.WriteFile(goldenFile, got, 0o644))
		t.Logf("updated %s", goldenFile)
		return
	}

	want, err := os.ReadFile(goldenFile)
	require.NoError(t, err, "update with: go test ./internal/orchestrator -run TestGoldenModuleSnapshot -args -update")
	require.JSONEq(t, string(want), string(got))
}

type reportLite struct {
	Valid     bool         `json:"valid"`
	Totals    ir.Totals    `json:"totals"`
	Files     []fileLite   `json:"files"`
	Cycles    []ir.Cycle   `json:"cycles"`
	LoadOrder ir.LoadOrder `json:"load_order"`
	Issues    []string     `json:"issues"`
}

type fileLite struct {
	Document string          `json:"document"`
	Valid    bool            `json:"valid"`
	Deps     ir.Dependencies `json:"dependencies"`
	Rules    []string        `json:"rules"`
	Counts   ir.Counts       `json:"counts"`
}

// normalize drops run ids, timestamps, paths and message text.
func normalize(r *ir.Report) reportLite {
	out := reportLite{
		Valid:     r.Valid,
		Totals:    r.Totals,
		Cycles:    r.Cycles,
		LoadOrder: r.LoadOrder,
		Issues:    r.Issues,
	}
	for _, f := range r.Files {
		fl := fileLite{Document: f.Document, Valid: f.Valid, Deps: f.Dependencies, Counts: f.Counts}
		for _, fd := range f.Findings {
			fl.Rules = append(fl.Rules, string(fd.Severity)+" "+fd.RuleID+" "+fd.Element)
		}
		sort.Strings(fl.Rules)
		out.Files = append(out.Files, fl)
	}
	sort.Slice(out.Files, func(i, k int) bool { return out.Files[i].Document < out.Files[k].Document })
	return out
}
