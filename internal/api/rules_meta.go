package api

import (
	"net/http"

	"github.com/codewithboateng/modlint/internal/rules"
)

type ruleMeta struct {
	ID              string   `json:"id"`
	Summary         string   `json:"summary"`
	Category        string   `json:"category"`
	Family          string   `json:"family,omitempty"`
	DefaultSeverity string   `json:"default_severity"`
	Docs            string   `json:"docs,omitempty"`
	Targets         []string `json:"targets,omitempty"`
}

// GET /api/v1/rules?category=items
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	reg := s.Rules
	if reg == nil {
		reg = rules.Default
	}
	cat := r.URL.Query().Get("category")
	var entries []rules.Entry
	if cat == "" {
		entries = reg.List()
	} else {
		for _, rr := range reg.ApplicableRules(cat) {
			if e, ok := reg.Get(rr.ID); ok {
				entries = append(entries, e)
			}
		}
	}
	out := make([]ruleMeta, 0, len(entries))
	for _, e := range entries {
		m := ruleMeta{
			ID: e.Rule.ID, Summary: e.Rule.Summary, Category: e.Category,
			Family: e.Rule.Family, DefaultSeverity: string(e.Rule.DefaultSeverity), Docs: e.Rule.Docs,
		}
		for _, t := range e.Rule.Targets {
			m.Targets = append(m.Targets, t.Element+"@"+t.Attr)
		}
		out = append(out, m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "count": len(out)})
}
