package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/codewithboateng/modlint/internal/security"
	"github.com/codewithboateng/modlint/internal/storage"
)

const (
	sessionCookie          = "modlint_session"
	defaultSessionDuration = 12 * time.Hour
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResp struct {
	Username  string       `json:"username"`
	Role      storage.Role `json:"role"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
}

func (s *Server) sessionDuration() time.Duration {
	if s.SessionDuration > 0 {
		return s.SessionDuration
	}
	return defaultSessionDuration
}

// handleLogin trades credentials for a session cookie. Unknown users and bad
// passwords get the same answer; both are audited as login_failed.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.err(w, http.StatusBadRequest, "invalid json")
		return
	}
	name := storage.NormalizeUsername(in.Username)
	if name == "" || in.Password == "" {
		s.err(w, http.StatusBadRequest, "username and password are required")
		return
	}
	u, hash, err := s.UserStore.GetUserByUsername(name)
	if err != nil || !security.CheckPassword(hash, in.Password) {
		_ = s.UserStore.LogAudit(name, "login_failed", "", map[string]any{"ip": clientIP(r)})
		s.err(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	now := time.Now()
	if n, err := s.UserStore.PurgeSessions(now); err != nil {
		s.logger().Warn("purge sessions failed", "err", err)
	} else if n > 0 {
		s.logger().Debug("expired sessions purged", "count", n)
	}

	tok, err := security.NewSessionToken()
	if err != nil {
		s.err(w, http.StatusInternalServerError, "token error")
		return
	}
	exp := now.Add(s.sessionDuration())
	if err := s.UserStore.CreateSession(u.ID, tok, exp); err != nil {
		s.err(w, http.StatusInternalServerError, "session error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		Expires:  exp,
	})
	_ = s.UserStore.LogAudit(u.Username, "login", "", map[string]any{"ip": clientIP(r)})
	writeJSON(w, http.StatusOK, sessionResp{Username: u.Username, Role: u.Role, ExpiresAt: &exp})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if tok, err := readSessionCookie(r); err == nil {
		_ = s.UserStore.DeleteSession(tok)
	}
	http.SetCookie(w, &http.Cookie{
		Name: sessionCookie, Value: "", Path: "/", Expires: time.Unix(0, 0), MaxAge: -1, HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromCtx(r.Context())
	if !ok {
		s.err(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, sessionResp{Username: u.Username, Role: u.Role})
}

// handleAudit lists recorded actions, newest first. ?action=waiver: selects a prefix.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := clamp(parseInt(q.Get("limit"), 50), 1, 500)
	entries, err := s.UserStore.ListAudit(q.Get("action"), limit)
	if err != nil {
		s.dbErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries, "limit": limit})
}

func readSessionCookie(r *http.Request) (string, error) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return "", errors.New("no session")
	}
	return c.Value, nil
}

// clientIP is the request's peer address without the port.
func clientIP(r *http.Request) string {
	addr := r.RemoteAddr
	if i := strings.LastIndexByte(addr, ':'); i > 0 {
		addr = addr[:i]
	}
	return strings.Trim(addr, "[]")
}
