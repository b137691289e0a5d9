package rules

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/codewithboateng/modlint/internal/parser"
)

// Canonical object sets.
const (
	SetItems          = "items"
	SetCharacters     = "characters"
	SetCultures       = "cultures"
	SetSkills         = "skills"
	SetCraftingPieces = "crafting_pieces"
)

// canonicalElements names the elements whose ids populate each set.
var canonicalElements = map[string][]string{
	SetItems:          {"Item", "CraftedItem"},
	SetCharacters:     {"Character", "NPCCharacter"},
	SetCultures:       {"Culture"},
	SetSkills:         {"Skill", "SkillObject"},
	SetCraftingPieces: {"CraftingPiece"},
}

func CanonicalSets() []string {
	out := make([]string, 0, len(canonicalElements))
	for k := range canonicalElements {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Context is the per-run universe of known object ids. It is filled once by
// Collect and only read while rules run.
type Context struct {
	sets  map[string]map[string]struct{}
	known map[string]bool
}

func NewContext() *Context {
	return &Context{sets: map[string]map[string]struct{}{}, known: map[string]bool{}}
}

// Add records id in set and marks the set as known.
func (c *Context) Add(set, id string) {
	c.markKnown(set)
	s, ok := c.sets[set]
	if !ok {
		s = map[string]struct{}{}
		c.sets[set] = s
	}
	s[id] = struct{}{}
}

func (c *Context) markKnown(set string) { c.known[set] = true }

// Known reports whether the set's canonical document was part of the corpus.
func (c *Context) Known(set string) bool { return c.known[set] }

func (c *Context) Has(set, id string) bool {
	_, ok := c.sets[set][id]
	return ok
}

func (c *Context) Len(set string) int { return len(c.sets[set]) }

// IDs returns the set's members in lexical order.
func (c *Context) IDs(set string) []string {
	out := make([]string, 0, len(c.sets[set]))
	for id := range c.sets[set] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Collect scans the canonical documents of the corpus. category maps a
// document id to its rule category; nil means the id itself. A canonical
// document that failed to parse leaves its set known but empty.
func Collect(corpus *parser.Corpus, category func(string) string, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	if category == nil {
		category = strings.ToLower
	}
	vc := NewContext()
	for _, d := range corpus.Docs {
		set := category(d.ID)
		elements, ok := canonicalElements[set]
		if !ok {
			continue
		}
		vc.markKnown(set)
		if d.Err != nil {
			logger.Warn("canonical document unreadable; treating as empty", "document", d.ID, "set", set, "err", d.Err)
			continue
		}
		for _, el := range elements {
			nodes, err := d.Query("descendant-or-self::" + el + "[@id]")
			if err != nil {
				logger.Warn("canonical query failed", "document", d.ID, "element", el, "err", err)
				continue
			}
			for _, n := range nodes {
				if id := strings.TrimSpace(parser.Attr(n, "id")); id != "" {
					vc.Add(set, id)
				}
			}
		}
	}
	return vc
}

func sortStrings(s []string) { sort.Strings(s) }
