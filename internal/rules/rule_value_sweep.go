package rules

import (
	"fmt"
	"math"
	"strings"

	"github.com/codewithboateng/modlint/internal/ir"
	"github.com/codewithboateng/modlint/internal/parser"
)

type bound struct{ min, max float64 }

// sweepBounds is the safety net under the category-specific range rules.
var sweepBounds = map[string]bound{
	"weight": {0, 1000},
	"value":  {0, math.Inf(1)},
	"damage": {0, 10000},
	"speed":  {0, 500},
}

func init() {
	Register(Wildcard, Rule{
		ID:              "VALUE-RANGE-SWEEP",
		Summary:         "Numeric weight, value, damage and speed attributes not checked elsewhere must be in generic bounds.",
		Family:          "sweep",
		DefaultSeverity: ir.SeverityWarning,
		Eval:            evalValueSweep,
	})
}

func evalValueSweep(in Input) ([]ir.Finding, error) {
	nodes, err := in.Doc.Query("descendant-or-self::*[@*]")
	if err != nil {
		return nil, err
	}
	var out []ir.Finding
	for _, n := range nodes {
		for _, a := range n.Attr {
			name := strings.ToLower(a.Name.Local)
			b, ok := sweepBounds[name]
			if !ok || in.Covered(n.Data, name) {
				continue
			}
			v, ok := parseNumber(a.Value, false)
			if !ok || (v >= b.min && v <= b.max) {
				continue
			}
			label := parser.ElementLabel(n)
			out = append(out, ir.Finding{
				Element:    label,
				Severity:   ir.SeverityWarning,
				Message:    fmt.Sprintf("element %s: %s %s is outside %s", label, name, a.Value, describeBounds(b.min, b.max)),
				Suggestion: fmt.Sprintf("keep %s within %s", name, describeBounds(b.min, b.max)),
				Evidence:   name + "=" + a.Value,
			})
		}
	}
	return out, nil
}
