package rules

import (
	"fmt"
	"strings"

	"github.com/codewithboateng/modlint/internal/ir"
	"github.com/codewithboateng/modlint/internal/parser"
)

// referenceRoles maps reference attributes to the set their values must belong to.
var referenceRoles = []struct {
	Attr string
	Set  string
}{
	{"item", SetItems},
	{"character", SetCharacters},
	{"culture", SetCultures},
	{"skill", SetSkills},
}

func init() {
	Register(Wildcard, Rule{
		ID:              "REFERENCE-INTEGRITY",
		Summary:         "Item, character, culture and skill references must resolve to an id declared in the corpus.",
		Family:          "reference",
		DefaultSeverity: ir.SeverityError,
		Eval:            evalReferenceIntegrity,
	})
}

// ReferenceID strips a "Type." prefix: "Item.item_sword" -> "item_sword".
func ReferenceID(v string) string {
	v = strings.TrimSpace(v)
	if parts := strings.Split(v, "."); len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}
	return v
}

func evalReferenceIntegrity(in Input) ([]ir.Finding, error) {
	var out []ir.Finding
	for _, role := range referenceRoles {
		// without the canonical document there is nothing to check against
		if !in.Context.Known(role.Set) {
			continue
		}
		nodes, err := in.Doc.Elements(role.Attr)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			raw := strings.TrimSpace(parser.Attr(n, role.Attr))
			if raw == "" || in.Context.Has(role.Set, ReferenceID(raw)) {
				continue
			}
			label := parser.ElementLabel(n)
			out = append(out, ir.Finding{
				Element:    label,
				Severity:   ir.SeverityError,
				Message:    fmt.Sprintf("element %s references unknown %s %q", label, role.Attr, raw),
				Suggestion: fmt.Sprintf("declare %q in %s or fix the reference", ReferenceID(raw), role.Set),
				Evidence:   role.Attr + "=" + raw,
			})
		}
	}
	return out, nil
}
