package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/codewithboateng/modlint/internal/ir"
	"github.com/codewithboateng/modlint/internal/reporting"
	"github.com/codewithboateng/modlint/internal/rules"
	"github.com/codewithboateng/modlint/internal/storage"
)

// Store is the minimal contract the API needs.
type Store interface {
	ListRuns(limit, offset int) ([]storage.RunRow, error)
	LoadRun(id string) (ir.Report, error)
	LoadLatestRun() (ir.Report, error)
	ListFindings(runID string, minSeverity ir.Severity) ([]ir.Finding, error)

	ListWaivers(activeOnly bool) ([]storage.Waiver, error)
	CreateWaiver(w storage.Waiver) (int64, error)
	RevokeWaiver(id int64) error
}

// UserStore is the auth/audit contract the API uses.
type UserStore interface {
	GetUserByUsername(string) (storage.User, string, error)
	CreateSession(int64, string, time.Time) error
	GetSession(string) (storage.User, error)
	DeleteSession(string) error
	PurgeSessions(now time.Time) (int64, error)
	LogAudit(username, action, resource string, meta map[string]any) error
	ListAudit(action string, limit int) ([]storage.AuditEntry, error)
}

type Server struct {
	DB              Store
	UserStore       UserStore
	Rules           *rules.Registry // nil = built-in rules
	Metrics         http.Handler    // served at /metrics when set
	Logger          *slog.Logger
	AllowedOrigins  []string
	SessionDuration time.Duration
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	cors := s.withCORS

	mux.HandleFunc("GET /api/v1/health", cors(s.handleHealth))

	mux.HandleFunc("POST /api/v1/auth/login", cors(s.handleLogin))
	mux.HandleFunc("POST /api/v1/auth/logout", cors(withAuth(s, s.handleLogout, "auth:logout")))
	mux.HandleFunc("GET /api/v1/me", cors(withAuth(s, s.handleMe, "me")))
	mux.HandleFunc("GET /api/v1/audit", cors(withAdmin(s, s.handleAudit, "audit:list")))

	mux.HandleFunc("GET /api/v1/runs", cors(s.handleListRuns))
	mux.HandleFunc("GET /api/v1/runs/latest", cors(s.handleGetLatest))
	mux.HandleFunc("GET /api/v1/runs/{id}", cors(s.handleGetRun))
	mux.HandleFunc("GET /api/v1/runs/{id}/findings", cors(s.handleListFindings))
	mux.HandleFunc("GET /api/v1/runs/{id}/graph", cors(s.handleGraph))

	mux.HandleFunc("GET /api/v1/rules", cors(s.handleRules))

	mux.HandleFunc("GET /api/v1/waivers", cors(withAuth(s, s.handleListWaivers, "waivers:list")))
	mux.HandleFunc("POST /api/v1/waivers", cors(withAdmin(s, s.handleCreateWaiver, "waivers:create")))
	mux.HandleFunc("POST /api/v1/waivers/{id}/revoke", cors(withAdmin(s, s.handleRevokeWaiver, "waivers:revoke")))

	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics)
	}

	mux.HandleFunc("/", cors(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	return mux
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Server) pickCORSOrigin(r *http.Request) string {
	if len(s.AllowedOrigins) == 0 {
		return ""
	}
	origin := r.Header.Get("Origin")
	for _, ao := range s.AllowedOrigins {
		if ao == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(origin, ao) {
			return origin
		}
	}
	return ""
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"timestamp":  time.Now().UTC(),
		"ir_version": ir.Version,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := clamp(parseInt(q.Get("limit"), 20), 1, 200)
	offset := max(parseInt(q.Get("offset"), 0), 0)

	rows, err := s.DB.ListRuns(limit, offset)
	if err != nil {
		s.dbErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": rows, "limit": limit, "offset": offset,
	})
}

func (s *Server) handleGetLatest(w http.ResponseWriter, r *http.Request) {
	run, err := s.DB.LoadLatestRun()
	if err != nil {
		s.dbErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.DB.LoadRun(r.PathValue("id"))
	if err != nil {
		s.dbErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListFindings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	minSev := ir.ParseSeverity(r.URL.Query().Get("min_severity"))
	items, err := s.DB.ListFindings(id, minSev)
	if err != nil {
		s.dbErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id": id, "min_severity": minSev, "items": items, "count": len(items),
	})
}

// handleGraph returns the stored dependency graph as JSON, or as Graphviz
// DOT with ?format=dot.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	run, err := s.DB.LoadRun(r.PathValue("id"))
	if err != nil {
		s.dbErr(w, err)
		return
	}
	if strings.EqualFold(r.URL.Query().Get("format"), "dot") {
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
		if err := reporting.DOT(w, &run); err != nil {
			s.logger().Warn("render dot failed", "run", run.ID, "err", err)
		}
		return
	}
	nodes := make([]string, 0, len(run.Files))
	for _, f := range run.Files {
		nodes = append(nodes, f.Document)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":     run.ID,
		"nodes":      nodes,
		"edges":      run.Edges,
		"cycles":     run.Cycles,
		"load_order": run.LoadOrder,
	})
}

// dbErr maps a missing row to 404 and everything else to 500.
func (s *Server) dbErr(w http.ResponseWriter, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		s.err(w, http.StatusNotFound, "not found")
		return
	}
	s.logger().Error("db error", "err", err)
	s.err(w, http.StatusInternalServerError, "db error: "+err.Error())
}

func (s *Server) err(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
