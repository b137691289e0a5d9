package rules

import "github.com/codewithboateng/modlint/internal/ir"

func init() {
	elements := []string{"combat_parameter", "CombatParameter"}
	spec := func(attr string) RangeSpec {
		return RangeSpec{
			ID:        "COMBAT-PARAMETER-RANGE",
			Elements:  elements,
			Attr:      attr,
			Min:       0,
			Max:       10,
			Severity:  ir.SeverityWarning,
			LabelAttr: "name",
		}
	}
	Register("combat_parameters", Combine(
		"COMBAT-PARAMETER-RANGE",
		"Combat damage and speed multipliers must lie between 0 and 10.",
		RangeRule(spec("damage_multiplier")),
		RangeRule(spec("speed_multiplier")),
	))
}

// Combine merges rules into one rule with a single id; findings keep their order.
func Combine(id, summary string, parts ...Rule) Rule {
	r := Rule{ID: id, Summary: summary}
	for _, p := range parts {
		r.Targets = append(r.Targets, p.Targets...)
		if p.DefaultSeverity.Rank() > r.DefaultSeverity.Rank() || r.DefaultSeverity == "" {
			r.DefaultSeverity = p.DefaultSeverity
		}
		if r.Family == "" {
			r.Family = p.Family
		}
	}
	r.Eval = func(in Input) ([]ir.Finding, error) {
		var out []ir.Finding
		for _, p := range parts {
			fs, err := p.Eval(in)
			if err != nil {
				return nil, err
			}
			out = append(out, fs...)
		}
		return out, nil
	}
	return r
}
