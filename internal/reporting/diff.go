package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codewithboateng/modlint/internal/depgraph"
	"github.com/codewithboateng/modlint/internal/ir"
)

type Diff struct {
	BaseID    string        `json:"base_id"`
	HeadID    string        `json:"head_id"`
	Summary   DiffSummary   `json:"summary"`
	New       []diffFinding `json:"new"`
	Removed   []diffFinding `json:"removed"`
	Changed   []diffChanged `json:"changed"`
	Cycles    cycleDiff     `json:"cycles"`
	Missing   missingDiff   `json:"missing_dependencies"`
	BaseValid bool          `json:"base_valid"`
	HeadValid bool          `json:"head_valid"`
}

type DiffSummary struct {
	NewCount     int `json:"new"`
	RemovedCount int `json:"removed"`
	ChangedCount int `json:"changed"`
}

type diffFinding struct {
	RuleID   string      `json:"rule_id"`
	Document string      `json:"document"`
	Element  string      `json:"element,omitempty"`
	Severity ir.Severity `json:"severity,omitempty"`
	Message  string      `json:"message,omitempty"`
}

type diffChanged struct {
	Key     string      `json:"key"`
	Base    diffFinding `json:"base"`
	Head    diffFinding `json:"head"`
	Changed []string    `json:"fields_changed"`
}

type cycleDiff struct {
	Introduced []string `json:"introduced,omitempty"`
	Resolved   []string `json:"resolved,omitempty"`
}

type missingDiff struct {
	Introduced []string `json:"introduced,omitempty"`
	Resolved   []string `json:"resolved,omitempty"`
}

// Compare matches findings across two runs by rule, document, element and
// evidence, so ids that moved between runs still pair up.
func Compare(base, head *ir.Report) Diff {
	bm := map[string]ir.Finding{}
	hm := map[string]ir.Finding{}
	for _, f := range base.AllFindings() {
		bm[keyOf(f)] = f
	}
	for _, f := range head.AllFindings() {
		hm[keyOf(f)] = f
	}

	var added, removed []diffFinding
	var changed []diffChanged
	for k, hf := range hm {
		bf, ok := bm[k]
		if !ok {
			added = append(added, asDiff(hf))
			continue
		}
		var fields []string
		if norm(string(bf.Severity)) != norm(string(hf.Severity)) {
			fields = append(fields, "severity")
		}
		if strings.TrimSpace(bf.Message) != strings.TrimSpace(hf.Message) {
			fields = append(fields, "message")
		}
		if strings.TrimSpace(bf.Suggestion) != strings.TrimSpace(hf.Suggestion) {
			fields = append(fields, "suggestion")
		}
		if len(fields) > 0 {
			changed = append(changed, diffChanged{Key: k, Base: asDiff(bf), Head: asDiff(hf), Changed: fields})
		}
	}
	for k, bf := range bm {
		if _, ok := hm[k]; !ok {
			removed = append(removed, asDiff(bf))
		}
	}
	sortDiff(added)
	sortDiff(removed)
	sort.Slice(changed, func(i, j int) bool { return changed[i].Key < changed[j].Key })

	d := Diff{
		BaseID:    base.ID,
		HeadID:    head.ID,
		Summary:   DiffSummary{NewCount: len(added), RemovedCount: len(removed), ChangedCount: len(changed)},
		New:       added,
		Removed:   removed,
		Changed:   changed,
		BaseValid: base.Valid,
		HeadValid: head.Valid,
	}
	d.Cycles.Introduced, d.Cycles.Resolved = setDiff(cycleSet(base), cycleSet(head))
	d.Missing.Introduced, d.Missing.Resolved = setDiff(missingSet(base), missingSet(head))
	return d
}

func WriteDiffJSON(outDir string, base, head *ir.Report) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, "diff_"+base.ID+"__"+head.ID+".json")
	b, err := json.MarshalIndent(Compare(base, head), "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, b, 0o644)
}

func keyOf(f ir.Finding) string {
	sb := strings.Builder{}
	sb.WriteString(norm(f.RuleID))
	sb.WriteByte('|')
	sb.WriteString(norm(f.Document))
	sb.WriteByte('|')
	sb.WriteString(norm(f.Element))
	sb.WriteByte('|')
	sb.WriteString(norm(f.Evidence))
	return sb.String()
}

func asDiff(f ir.Finding) diffFinding {
	return diffFinding{RuleID: f.RuleID, Document: f.Document, Element: f.Element, Severity: f.Severity, Message: f.Message}
}

func sortDiff(fs []diffFinding) {
	sort.Slice(fs, func(i, j int) bool {
		if fs[i].RuleID != fs[j].RuleID {
			return fs[i].RuleID < fs[j].RuleID
		}
		if fs[i].Document != fs[j].Document {
			return fs[i].Document < fs[j].Document
		}
		return fs[i].Element < fs[j].Element
	})
}

// cycleSet keys each cycle by its rotation starting at the smallest id.
func cycleSet(r *ir.Report) map[string]bool {
	out := map[string]bool{}
	for _, c := range r.Cycles {
		if len(c.Nodes) == 0 {
			continue
		}
		min := 0
		for i, n := range c.Nodes {
			if n < c.Nodes[min] {
				min = i
			}
		}
		rot := append(append([]string(nil), c.Nodes[min:]...), c.Nodes[:min]...)
		out[depgraph.DescribeCycle(rot)] = true
	}
	return out
}

func missingSet(r *ir.Report) map[string]bool {
	out := map[string]bool{}
	for _, f := range r.Files {
		for _, m := range f.Dependencies.Missing {
			out[f.Document+" -> "+m] = true
		}
	}
	return out
}

func setDiff(base, head map[string]bool) (introduced, resolved []string) {
	for k := range head {
		if !base[k] {
			introduced = append(introduced, k)
		}
	}
	for k := range base {
		if !head[k] {
			resolved = append(resolved, k)
		}
	}
	sort.Strings(introduced)
	sort.Strings(resolved)
	return introduced, resolved
}

func norm(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
