package orchestrator

import (
	"github.com/codewithboateng/modlint/internal/ir"
	"github.com/codewithboateng/modlint/internal/rules"
	"github.com/codewithboateng/modlint/internal/storage"
)

// ApplyWaivers drops waived findings from r and rebuilds its totals, issues
// and suggestions. Returns the number of findings waived.
func ApplyWaivers(r *ir.Report, waivers []storage.Waiver) int {
	n := rules.ApplyWaiversToReport(r, waivers)
	if n > 0 {
		Finalize(r)
	}
	return n
}
