package orchestrator

import (
	"fmt"
	"sort"

	"github.com/codewithboateng/modlint/internal/depgraph"
	"github.com/codewithboateng/modlint/internal/ir"
)

// Suggestion categories.
const (
	CategoryCircular   = "circular dependency"
	CategoryMissing    = "missing dependency"
	CategoryDocument   = "document errors"
	CategoryRuleErrors = "rule errors"
	CategoryWarnings   = "warnings"
)

func issues(r *ir.Report) []string {
	var out []string
	add := func(n int, format string) {
		if n > 0 {
			out = append(out, fmt.Sprintf(format, n))
		}
	}
	add(len(r.Cycles), "%d circular dependencies")
	add(r.Totals.Missing, "%d missing dependencies")
	var broken int
	for _, f := range r.Files {
		if len(f.Errors) > 0 {
			broken++
		}
	}
	add(broken, "%d documents could not be fully validated")
	add(r.Totals.Errors, "%d errors need fixing")
	add(r.Totals.Warnings, "%d warnings worth reviewing")
	return out
}

// suggestions derives prioritized remediation from the report, most urgent first.
func suggestions(r *ir.Report) []ir.FixSuggestion {
	var out []ir.FixSuggestion

	if len(r.Cycles) > 0 {
		s := ir.FixSuggestion{
			Category:    CategoryCircular,
			Priority:    ir.PriorityCritical,
			Description: "circular dependencies leave documents without a safe load order",
		}
		for _, c := range r.Cycles {
			s.Steps = append(s.Steps, "remove cycle: "+depgraph.DescribeCycle(c.Nodes))
		}
		out = append(out, s)
	}

	missing := map[string]bool{}
	for _, f := range r.Files {
		for _, m := range f.Dependencies.Missing {
			missing[m] = true
		}
	}
	if len(missing) > 0 {
		s := ir.FixSuggestion{
			Category:    CategoryMissing,
			Priority:    ir.PriorityHigh,
			Description: "documents reference files that are not in the corpus",
		}
		for _, m := range sortedKeys(missing) {
			s.Steps = append(s.Steps, fmt.Sprintf("create missing file %s.xml or remove the reference", m))
		}
		out = append(out, s)
	}

	var docSteps []string
	for _, f := range r.Files {
		for _, e := range f.Errors {
			docSteps = append(docSteps, f.Document+": "+e)
		}
	}
	if len(docSteps) > 0 {
		out = append(out, ir.FixSuggestion{
			Category:    CategoryDocument,
			Priority:    ir.PriorityHigh,
			Description: "documents that failed to parse or whose rules faulted",
			Steps:       docSteps,
		})
	}

	byRule := map[string][]string{}
	seen := map[string]bool{}
	warnings := map[string]int{}
	for _, f := range r.AllFindings() {
		if f.RuleID == RuleMissingDependency || f.RuleID == RuleDocumentParse {
			continue
		}
		switch f.Severity.Rank() {
		case ir.SeverityError.Rank():
			step := f.Suggestion
			if step == "" {
				step = f.Message
			}
			if k := f.RuleID + "|" + step; !seen[k] {
				seen[k] = true
				byRule[f.RuleID] = append(byRule[f.RuleID], step)
			}
		case ir.SeverityWarning.Rank():
			warnings[f.RuleID]++
		}
	}
	for _, id := range sortedKeys(byRule) {
		out = append(out, ir.FixSuggestion{
			Category:    CategoryRuleErrors,
			Priority:    ir.PriorityMedium,
			Description: "fix " + id + " errors",
			Steps:       byRule[id],
		})
	}
	if len(warnings) > 0 {
		s := ir.FixSuggestion{
			Category:    CategoryWarnings,
			Priority:    ir.PriorityLow,
			Description: "review rule warnings",
		}
		for _, id := range sortedKeys(warnings) {
			s.Steps = append(s.Steps, fmt.Sprintf("review %s (%d)", id, warnings[id]))
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority.Rank() > out[j].Priority.Rank() })
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
