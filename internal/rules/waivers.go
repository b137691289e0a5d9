package rules

import (
	"strings"

	"github.com/codewithboateng/modlint/internal/ir"
	"github.com/codewithboateng/modlint/internal/storage"
)

// ApplyWaivers filters out findings that match any active waiver.
// Returns (kept, waivedCount)
func ApplyWaivers(in []ir.Finding, waivers []storage.Waiver) ([]ir.Finding, int) {
	if len(waivers) == 0 || len(in) == 0 {
		return in, 0
	}
	var out []ir.Finding
	waived := 0
nextFinding:
	for _, f := range in {
		for _, w := range waivers {
			if !Waives(w, f) {
				continue
			}
			waived++
			continue nextFinding
		}
		out = append(out, f)
	}
	return out, waived
}

// ApplyWaiversToReport removes waived findings from every file and recounts.
func ApplyWaiversToReport(r *ir.Report, waivers []storage.Waiver) int {
	total := 0
	for i := range r.Files {
		kept, n := ApplyWaivers(r.Files[i].Findings, waivers)
		r.Files[i].Findings = kept
		total += n
	}
	if total > 0 {
		r.Context.Waived += total
		r.Recount()
	}
	return total
}

// Waives reports whether w suppresses f. Empty waiver fields match anything.
func Waives(w storage.Waiver, f ir.Finding) bool {
	if !eqCI(f.RuleID, w.RuleID) {
		return false
	}
	if w.Document != "" && !eqCI(f.Document, w.Document) {
		return false
	}
	if w.Element != "" && !eqCI(f.Element, w.Element) {
		return false
	}
	if w.PatternSub != "" {
		ps := strings.ToUpper(w.PatternSub)
		if !strings.Contains(strings.ToUpper(f.Evidence), ps) &&
			!strings.Contains(strings.ToUpper(f.Message), ps) {
			return false
		}
	}
	return true
}

func eqCI(a, b string) bool { return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) }
