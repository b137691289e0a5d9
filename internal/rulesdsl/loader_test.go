package rulesdsl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithboateng/modlint/internal/ir"
	"github.com/codewithboateng/modlint/internal/parser"
	"github.com/codewithboateng/modlint/internal/rules"
)

const pack = `
rules:
  - id: TROOP-TIER-RANGE
    category: characters
    summary: Troop tier between 0 and 6
    kind: range
    severity: error
    elements: [NPCCharacter]
    attr: tier
    min: 0
    max: 6
    integer: true
  - id: CULTURE-COLOR-PATTERN
    category: cultures
    kind: pattern
    elements: [Culture]
    attr: color
    pattern: "^0x[0-9a-fA-F]{8}$"
  - id: BANNER-KIND-ENUM
    kind: enum
    elements: [Banner]
    attr: kind
    allowed: [Lord, Clan]
`

func parsed(t *testing.T, name, content string) *parser.Document {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	d := parser.ParseFile(p)
	require.NoError(t, d.Err)
	return d
}

func TestRegisterPack(t *testing.T) {
	reg := rules.NewRegistry()
	n, err := Register([]byte(pack), reg)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"*", "characters", "cultures"}, reg.Categories())

	e := rules.NewEngine(reg, rules.DefaultSettings())
	fs, errs := e.Evaluate(parsed(t, "characters.xml",
		`<NPCCharacters><NPCCharacter id="t1" tier="9"/><NPCCharacter id="t2" tier="3"/><Banner kind="Pirate"/></NPCCharacters>`),
		rules.NewContext())
	require.Empty(t, errs)
	require.Len(t, fs, 2)
	assert.Equal(t, ir.SeverityError, fs[0].Severity)
	assert.Equal(t, "TROOP-TIER-RANGE", fs[0].RuleID)
	assert.Equal(t, "BANNER-KIND-ENUM", fs[1].RuleID)
	assert.Equal(t, ir.SeverityWarning, fs[1].Severity)

	fs, _ = e.Evaluate(parsed(t, "cultures.xml", `<Cultures><Culture id="empire" color="red"/></Cultures>`), rules.NewContext())
	require.Len(t, fs, 1)
	assert.Equal(t, "CULTURE-COLOR-PATTERN", fs[0].RuleID)
}

func TestRegisterPackErrors(t *testing.T) {
	cases := map[string]string{
		"missing fields": "rules:\n  - id: X\n    kind: range\n",
		"no bounds":      "rules:\n  - {id: X, kind: range, elements: [A], attr: a}\n",
		"inverted":       "rules:\n  - {id: X, kind: range, elements: [A], attr: a, min: 5, max: 1}\n",
		"bad regex":      "rules:\n  - {id: X, kind: pattern, elements: [A], attr: a, pattern: '('}\n",
		"empty enum":     "rules:\n  - {id: X, kind: enum, elements: [A], attr: a}\n",
		"unknown kind":   "rules:\n  - {id: X, kind: magic, elements: [A], attr: a}\n",
		"bad yaml":       "rules: [",
	}
	for name, y := range cases {
		_, err := Register([]byte(y), rules.NewRegistry())
		assert.Error(t, err, name)
	}
}

func TestDuplicateAgainstBuiltins(t *testing.T) {
	reg := rules.Default.Clone()
	_, err := Register([]byte("rules:\n  - {id: ID-UNIQUE, kind: enum, elements: [A], attr: a, allowed: [x]}\n"), reg)
	assert.Error(t, err)

	_, err = LoadAndRegister(filepath.Join(t.TempDir(), "missing.yaml"), reg)
	assert.Error(t, err)
}
