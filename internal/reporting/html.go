package reporting

import (
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/codewithboateng/modlint/internal/ir"
)

// maxFindingRows caps the findings table; the JSON report carries the rest.
const maxFindingRows = 500

func WriteHTML(runID, outDir string, r *ir.Report) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, runID+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	renderHTML(f, runID, r)
	return path, nil
}

func renderHTML(f io.Writer, runID string, r *ir.Report) {
	esc := html.EscapeString

	fmt.Fprintf(f, "<!doctype html><html><head><meta charset='utf-8'><title>%s</title>", esc(runID))
	fmt.Fprint(f, "<style>body{font-family:system-ui,Arial,sans-serif;padding:20px;line-height:1.4} table{border-collapse:collapse;margin:8px 0} td,th{border:1px solid #ddd;padding:6px} h1,h2{margin:6px 0 4px} .dim{color:#666} .mono{font-family:ui-monospace,Menlo,Consolas,monospace} .ERROR{color:#b00} .WARNING{color:#a60} .ok{color:#070}</style>")
	fmt.Fprint(f, "</head><body>")

	status := "<span class='ok'>valid</span>"
	if !r.Valid {
		status = "<span class='ERROR'>invalid</span>"
	}
	fmt.Fprintf(f, "<h1>modlint report – <span class='mono'>%s</span></h1>", esc(runID))
	fmt.Fprintf(f, "<p class='dim mono'>%s</p>", esc(r.Source))
	fmt.Fprintf(f, "<p>Status: %s &nbsp; Documents: %d &nbsp; Errors: %d &nbsp; Warnings: %d &nbsp; Info: %d &nbsp; Cycles: %d &nbsp; Missing: %d</p>",
		status, r.Totals.Files, r.Totals.Errors, r.Totals.Warnings, r.Totals.Infos, r.Totals.Cycles, r.Totals.Missing)

	fmt.Fprintf(f, "<p class='dim'>Severity threshold: %s", esc(r.Context.RuleSeverityThreshold))
	if n := len(r.Context.DisabledRules); n > 0 {
		fmt.Fprintf(f, " &nbsp; Disabled rules: %s", esc(strings.Join(r.Context.DisabledRules, ", ")))
	}
	if n := len(r.Context.RulePacks); n > 0 {
		fmt.Fprintf(f, " &nbsp; Rule packs: %d", n)
	}
	if r.Context.Waived > 0 {
		fmt.Fprintf(f, " &nbsp; Waived findings: %d", r.Context.Waived)
	}
	fmt.Fprint(f, "</p>")

	if len(r.Issues) > 0 {
		fmt.Fprint(f, "<ul>")
		for _, is := range r.Issues {
			fmt.Fprintf(f, "<li>%s</li>", esc(is))
		}
		fmt.Fprint(f, "</ul>")
	}

	if len(r.Suggestions) > 0 {
		fmt.Fprint(f, "<h2>Fix Suggestions</h2>")
		for _, s := range r.Suggestions {
			fmt.Fprintf(f, "<h3>[%s] %s</h3><p class='dim'>%s</p><ol>", esc(string(s.Priority)), esc(s.Category), esc(s.Description))
			for _, st := range s.Steps {
				fmt.Fprintf(f, "<li class='mono'>%s</li>", esc(st))
			}
			fmt.Fprint(f, "</ol>")
		}
	}

	fmt.Fprint(f, "<h2>Load Order</h2>")
	if len(r.LoadOrder.Order) > 0 {
		fmt.Fprintf(f, "<p class='mono'>%s</p>", esc(strings.Join(r.LoadOrder.Order, " → ")))
	}
	if len(r.LoadOrder.Excluded) > 0 {
		fmt.Fprintf(f, "<p class='ERROR'>No safe order until cycles are resolved: <span class='mono'>%s</span></p>", esc(strings.Join(r.LoadOrder.Excluded, ", ")))
	}
	if len(r.Cycles) > 0 {
		fmt.Fprint(f, "<ul>")
		for _, c := range r.Cycles {
			fmt.Fprintf(f, "<li class='mono'>%s</li>", esc(c.Description))
		}
		fmt.Fprint(f, "</ul>")
	}

	fmt.Fprint(f, "<h2>Documents</h2><table><tr><th>Document</th><th>Category</th><th>Dependencies</th><th>Missing</th><th>Errors</th><th>Warnings</th><th>Status</th></tr>")
	for _, fr := range r.Files {
		st := "<span class='ok'>ok</span>"
		if !fr.Valid {
			st = "<span class='ERROR'>invalid</span>"
		}
		fmt.Fprintf(f, "<tr><td class='mono'>%s</td><td>%s</td><td class='mono'>%s</td><td class='mono ERROR'>%s</td><td>%d</td><td>%d</td><td>%s</td></tr>",
			esc(fr.Document), esc(fr.Category),
			esc(strings.Join(fr.Dependencies.All, ", ")),
			esc(strings.Join(fr.Dependencies.Missing, ", ")),
			fr.Counts.Errors, fr.Counts.Warnings, st)
	}
	fmt.Fprint(f, "</table>")

	all := r.AllFindings()
	if len(all) == 0 {
		fmt.Fprint(f, "<h2>Findings</h2><p class='dim'>No findings at or above the configured threshold.</p>")
	} else {
		fmt.Fprint(f, "<h2>Findings</h2><table><tr><th>Severity</th><th>Rule</th><th>Document</th><th>Element</th><th>Message</th><th>Suggestion</th></tr>")
		for i, fd := range all {
			if i == maxFindingRows {
				fmt.Fprintf(f, "<tr><td colspan='6' class='dim'>%d more in the JSON report</td></tr>", len(all)-maxFindingRows)
				break
			}
			fmt.Fprintf(f, "<tr><td class='%s'>%s</td><td>%s</td><td class='mono'>%s</td><td class='mono'>%s</td><td>%s</td><td class='dim'>%s</td></tr>",
				esc(string(fd.Severity)), esc(string(fd.Severity)),
				esc(fd.RuleID), esc(fd.Document), esc(fd.Element),
				esc(fd.Message), esc(fd.Suggestion))
		}
		fmt.Fprint(f, "</table>")
	}

	fmt.Fprint(f, "</body></html>")
}
