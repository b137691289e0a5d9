package rules

import (
	"math"

	"github.com/codewithboateng/modlint/internal/ir"
)

var itemElements = []string{"Item"}

var itemTypes = []string{
	"Goods", "Animal", "Horse", "OneHandedWeapon", "TwoHandedWeapon", "Polearm",
	"Arrow", "Bolt", "Shield", "Bow", "Crossbow", "ThrowingKnife", "ThrowingAxe",
	"Stone", "Bullets", "Armor", "HeadArmor", "BodyArmor", "LegArmor", "HandArmor",
	"Pistol", "Musket", "Banner", "Book", "HorseHarness", "CartridgeBag",
	"ChestArmor", "Gloves", "Boots", "Mask",
}

func init() {
	Register(SetItems, RangeRule(RangeSpec{
		ID:       "ITEM-WEIGHT-RANGE",
		Summary:  "Item weight must be a number between 0 and 1000.",
		Elements: itemElements,
		Attr:     "weight",
		Min:      0,
		Max:      1000,
		Severity: ir.SeverityWarning,
	}))
	Register(SetItems, RangeRule(RangeSpec{
		ID:         "ITEM-VALUE-RANGE",
		Summary:    "Item value must be a non-negative integer.",
		Elements:   itemElements,
		Attr:       "value",
		Min:        0,
		Max:        math.Inf(1),
		Integer:    true,
		Severity:   ir.SeverityError,
		Suggestion: "set value to zero or more",
	}))
	Register(SetItems, EnumRule(EnumSpec{
		ID:       "ITEM-TYPE-ENUM",
		Summary:  "Item type must be a known item type.",
		Elements: itemElements,
		Attr:     "type",
		Allowed:  itemTypes,
		Severity: ir.SeverityError,
	}))
}
