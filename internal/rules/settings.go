package rules

import (
	"strings"

	"github.com/codewithboateng/modlint/internal/ir"
)

type Settings struct {
	SeverityThreshold ir.Severity
	Disabled          map[string]bool   // UPPER(rule id)
	Categories        map[string]string // document id -> category
	// WildcardOnly documents receive only the "*" rules.
	WildcardOnly map[string]bool
}

func DefaultSettings() Settings {
	return Settings{
		SeverityThreshold: ir.SeverityInfo,
		Disabled:          map[string]bool{},
		Categories:        map[string]string{},
		WildcardOnly:      map[string]bool{},
	}
}

// NewSettings builds settings from loosely typed configuration values.
func NewSettings(threshold string, disabled []string, categories map[string]string) Settings {
	s := DefaultSettings()
	if strings.TrimSpace(threshold) != "" {
		s.SeverityThreshold = ir.ParseSeverity(threshold)
	}
	for _, id := range disabled {
		s.Disabled[strings.ToUpper(strings.TrimSpace(id))] = true
	}
	for doc, cat := range categories {
		cat = strings.ToLower(strings.TrimSpace(cat))
		if cat == Wildcard {
			s.WildcardOnly[doc] = true
			continue
		}
		s.Categories[doc] = cat
	}
	return s
}

// Category maps a document id to its rule category; unmapped ids are their own category.
func (s Settings) Category(docID string) string {
	if s.WildcardOnly[docID] {
		return Wildcard
	}
	if c, ok := s.Categories[docID]; ok && c != "" {
		return c
	}
	return strings.ToLower(docID)
}

func (s Settings) enabled(ruleID string) bool {
	return !s.Disabled[strings.ToUpper(ruleID)]
}

func (s Settings) severityOK(sev ir.Severity) bool {
	th := s.SeverityThreshold
	if th == "" {
		th = ir.SeverityInfo
	}
	return sev.Rank() >= th.Rank()
}

func (s Settings) DisabledList() []string {
	var out []string
	for id, off := range s.Disabled {
		if off {
			out = append(out, id)
		}
	}
	sortStrings(out)
	return out
}

// Keeps reports whether a finding of ruleID at sev survives the disabled
// list and the severity threshold.
func (s Settings) Keeps(ruleID string, sev ir.Severity) bool {
	return s.enabled(ruleID) && s.severityOK(sev)
}
