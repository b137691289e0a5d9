package ir

import (
	"sort"
	"strings"
	"time"
)

const Version = "1.0"

type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// Rank orders severities; unknown values rank as INFO.
func (s Severity) Rank() int {
	switch Severity(strings.ToUpper(strings.TrimSpace(string(s)))) {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	default:
		return 1
	}
}

func ParseSeverity(s string) Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR", "HIGH":
		return SeverityError
	case "WARNING", "WARN", "MEDIUM":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// Origin tags how a dependency was inferred.
type Origin string

const (
	OriginPredefined Origin = "PREDEFINED"
	OriginContent    Origin = "CONTENT"
	OriginSchema     Origin = "SCHEMA"
)

type Report struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Source    string    `json:"source,omitempty"`
	IRVersion string    `json:"ir_version,omitempty"`

	Context     Context         `json:"context"`
	Valid       bool            `json:"valid"`
	Totals      Totals          `json:"totals"`
	Files       []FileResult    `json:"files"`
	Edges       []Edge          `json:"edges,omitempty"`
	Cycles      []Cycle         `json:"cycles,omitempty"`
	LoadOrder   LoadOrder       `json:"load_order"`
	Suggestions []FixSuggestion `json:"suggestions,omitempty"`
	Issues      []string        `json:"issues,omitempty"`
}

type Context struct {
	RuleSeverityThreshold string   `json:"rule_severity_threshold,omitempty"`
	DisabledRules         []string `json:"disabled_rules,omitempty"`
	RulePacks             []string `json:"rule_packs,omitempty"`
	Waived                int      `json:"waived,omitempty"`
}

type Totals struct {
	Files    int `json:"files"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
	Cycles   int `json:"cycles"`
	Missing  int `json:"missing"`
}

type FileResult struct {
	Document     string       `json:"document"`
	Path         string       `json:"path"`
	Category     string       `json:"category"`
	Dependencies Dependencies `json:"dependencies"`
	Findings     []Finding    `json:"findings,omitempty"`
	Errors       []string     `json:"errors,omitempty"`
	Counts       Counts       `json:"counts"`
	Valid        bool         `json:"valid"`
}

type Dependencies struct {
	Predefined []string `json:"predefined,omitempty"`
	Content    []string `json:"content,omitempty"`
	Schema     []string `json:"schema,omitempty"`
	All        []string `json:"all,omitempty"`
	Missing    []string `json:"missing,omitempty"`
}

type Counts struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

func (c *Counts) Add(s Severity) {
	switch s.Rank() {
	case SeverityError.Rank():
		c.Errors++
	case SeverityWarning.Rank():
		c.Warnings++
	default:
		c.Infos++
	}
}

type Finding struct {
	ID         string   `json:"id"`
	Document   string   `json:"document"`
	Element    string   `json:"element,omitempty"`
	RuleID     string   `json:"rule_id"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
	Evidence   string   `json:"evidence,omitempty"`
}

// Edge is one logical dependency; parallel edges with different origins collapse here.
type Edge struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Origins []Origin `json:"origins"`
	Missing bool     `json:"missing,omitempty"`
}

type Cycle struct {
	Nodes       []string `json:"nodes"`
	Description string   `json:"description"`
}

type LoadOrder struct {
	Order    []string `json:"order"`
	Excluded []string `json:"excluded,omitempty"`
}

type FixSuggestion struct {
	Category    string   `json:"category"`
	Priority    Priority `json:"priority"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
}

// AllFindings flattens per-file findings, most severe first.
func (r *Report) AllFindings() []Finding {
	var out []Finding
	for _, f := range r.Files {
		out = append(out, f.Findings...)
	}
	SortFindings(out)
	return out
}

// Recount rebuilds per-file counts, totals and validity from the findings in place.
func (r *Report) Recount() {
	t := Totals{Files: len(r.Files), Cycles: len(r.Cycles)}
	for i := range r.Files {
		fr := &r.Files[i]
		fr.Counts = Counts{}
		for _, f := range fr.Findings {
			fr.Counts.Add(f.Severity)
		}
		fr.Valid = fr.Counts.Errors == 0 && len(fr.Errors) == 0
		t.Errors += fr.Counts.Errors
		t.Warnings += fr.Counts.Warnings
		t.Infos += fr.Counts.Infos
		t.Missing += len(fr.Dependencies.Missing)
	}
	r.Totals = t
	r.Valid = t.Errors == 0 && t.Cycles == 0
}

func SortFindings(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		ri, rj := fs[i].Severity.Rank(), fs[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		if fs[i].Document != fs[j].Document {
			return fs[i].Document < fs[j].Document
		}
		return fs[i].ID < fs[j].ID
	})
}
