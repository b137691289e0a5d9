package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var ErrUnknownRule = errors.New("unknown rule")

// Entry is a registered rule together with its applicability key.
type Entry struct {
	Category string
	Rule     Rule
}

// Registry is append-only: rules are added at startup and only read afterwards.
type Registry struct {
	mu         sync.RWMutex
	byCategory map[string][]Rule
	entries    []Entry
}

func NewRegistry() *Registry {
	return &Registry{byCategory: map[string][]Rule{}}
}

// Default holds the built-in rules, registered from init functions.
var Default = NewRegistry()

// Register adds rule to the built-in registry and panics on a duplicate,
// which can only be a programming error.
func Register(category string, r Rule) {
	if err := Default.Register(category, r); err != nil {
		panic(err)
	}
}

func (reg *Registry) Register(category string, r Rule) error {
	category = normCategory(category)
	r.ID = strings.ToUpper(strings.TrimSpace(r.ID))
	if r.ID == "" {
		return errors.New("register rule: empty id")
	}
	if r.Eval == nil {
		return fmt.Errorf("register rule %s: nil Eval", r.ID)
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for _, existing := range reg.byCategory[category] {
		if existing.ID == r.ID {
			return fmt.Errorf("register rule %s: already registered for %q", r.ID, category)
		}
	}
	reg.byCategory[category] = append(reg.byCategory[category], r)
	reg.entries = append(reg.entries, Entry{Category: category, Rule: r})
	return nil
}

// ApplicableRules returns the wildcard rules followed by the rules of category,
// each group in registration order.
func (reg *Registry) ApplicableRules(category string) []Rule {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := append([]Rule(nil), reg.byCategory[Wildcard]...)
	if c := normCategory(category); c != Wildcard {
		out = append(out, reg.byCategory[c]...)
	}
	return out
}

// List returns every entry ordered by rule id, then category.
func (reg *Registry) List() []Entry {
	reg.mu.RLock()
	out := append([]Entry(nil), reg.entries...)
	reg.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rule.ID != out[j].Rule.ID {
			return out[i].Rule.ID < out[j].Rule.ID
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Get returns a rule by id if registered (used by the HTML report to link docs).
func (reg *Registry) Get(id string) (Entry, bool) {
	id = strings.ToUpper(strings.TrimSpace(id))
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	for _, e := range reg.entries {
		if e.Rule.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Categories returns the registered applicability keys.
func (reg *Registry) Categories() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]string, 0, len(reg.byCategory))
	for c := range reg.byCategory {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Clone copies the registry so callers can add rule packs without touching
// the shared built-in set.
func (reg *Registry) Clone() *Registry {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := NewRegistry()
	for c, rs := range reg.byCategory {
		out.byCategory[c] = append([]Rule(nil), rs...)
	}
	out.entries = append([]Entry(nil), reg.entries...)
	return out
}

func normCategory(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" {
		return Wildcard
	}
	return c
}
