package rules

import "github.com/codewithboateng/modlint/internal/ir"

func init() {
	elements := []string{"CraftingPiece"}
	Register(SetCraftingPieces, RangeRule(RangeSpec{
		ID:       "CRAFTING-PIECE-DIFFICULTY-RANGE",
		Summary:  "Crafting piece difficulty must be an integer between 0 and 300.",
		Elements: elements,
		Attr:     "difficulty",
		Min:      0,
		Max:      300,
		Integer:  true,
		Severity: ir.SeverityWarning,
	}))
	Register(SetCraftingPieces, Combine(
		"CRAFTING-PIECE-STAT-RANGE",
		"Crafting piece damage (0-1000) and speed (0-200) must be integers in range.",
		RangeRule(RangeSpec{
			ID: "CRAFTING-PIECE-STAT-RANGE", Elements: elements, Attr: "damage",
			Min: 0, Max: 1000, Integer: true, Severity: ir.SeverityWarning,
		}),
		RangeRule(RangeSpec{
			ID: "CRAFTING-PIECE-STAT-RANGE", Elements: elements, Attr: "speed",
			Min: 0, Max: 200, Integer: true, Severity: ir.SeverityWarning,
		}),
	))
}
