package rules

import "github.com/codewithboateng/modlint/internal/ir"

var characterElements = []string{"Character", "NPCCharacter"}

var occupations = []string{
	"NotAssigned", "Soldier", "Merchant", "Gangster", "Bandit", "CaravanGuard",
	"MerchantCartGuard", "VeteranMercenary", "Mercenary", "CaravanMaster",
	"GangLeader", "BanditChief", "MerchantGuildMaster", "Artisan", "Elder",
	"Headman", "Warrior", "Slave", "Lord", "Lady",
}

func init() {
	Register(SetCharacters, RangeRule(RangeSpec{
		ID:         "CHARACTER-LEVEL-RANGE",
		Summary:    "Character level must be an integer between 1 and 62.",
		Elements:   characterElements,
		Attr:       "level",
		Min:        1,
		Max:        62,
		Integer:    true,
		Severity:   ir.SeverityError,
		Suggestion: "set level between 1 and 62",
	}))
	Register(SetCharacters, EnumRule(EnumSpec{
		ID:       "CHARACTER-OCCUPATION-ENUM",
		Summary:  "Character occupation must be a known occupation.",
		Elements: characterElements,
		Attr:     "occupation",
		Allowed:  occupations,
		Severity: ir.SeverityError,
	}))
}
