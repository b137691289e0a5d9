package rules

import (
	"fmt"
	"regexp"

	"github.com/codewithboateng/modlint/internal/ir"
	"github.com/codewithboateng/modlint/internal/parser"
)

func init() {
	Register(Wildcard, Rule{
		ID:              "ID-UNIQUE",
		Summary:         "Every id-bearing element must carry an id unique within its document.",
		Family:          "identity",
		DefaultSeverity: ir.SeverityError,
		Eval:            evalIDUnique,
	})
	Register(Wildcard, Rule{
		ID:              "ID-FORMAT",
		Summary:         "Ids use letters, digits and underscores only, with at least one letter.",
		Family:          "identity",
		DefaultSeverity: ir.SeverityWarning,
		Eval:            evalIDFormat,
	})
}

var idFormat = regexp.MustCompile(`^[A-Za-z0-9_]*[A-Za-z][A-Za-z0-9_]*$`)

func documentIDs(doc *parser.Document) ([]string, error) {
	return doc.AttrValues("id")
}

func evalIDUnique(in Input) ([]ir.Finding, error) {
	ids, err := documentIDs(in.Doc)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	var order []string
	for _, id := range ids {
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}
	var out []ir.Finding
	for _, id := range order {
		if counts[id] < 2 {
			continue
		}
		out = append(out, ir.Finding{
			Element:    id,
			Severity:   ir.SeverityError,
			Message:    "duplicate id: " + id,
			Suggestion: "rename the duplicates so each id is unique",
			Evidence:   fmt.Sprintf("id=%s x%d", id, counts[id]),
		})
	}
	return out, nil
}

func evalIDFormat(in Input) ([]ir.Finding, error) {
	ids, err := documentIDs(in.Doc)
	if err != nil {
		return nil, err
	}
	var out []ir.Finding
	for _, id := range ids {
		if idFormat.MatchString(id) {
			continue
		}
		out = append(out, ir.Finding{
			Element:    id,
			Severity:   ir.SeverityWarning,
			Message:    "invalid id format: " + id,
			Suggestion: "use lowercase letters, digits and underscores",
			Evidence:   "id=" + id,
		})
	}
	return out, nil
}
