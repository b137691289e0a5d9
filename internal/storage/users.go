package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNoRowsAffected = errors.New("no rows affected")
	ErrInvalidRole    = errors.New("role must be admin or viewer")
	ErrInvalidUser    = errors.New("username must not be empty")
	ErrUserExists     = errors.New("user already exists")
)

// Role gates the API: viewers read runs and waivers, admins also manage waivers
// and read the audit trail.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// ParseRole accepts a role name in any case; empty means viewer.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleViewer:
		return RoleViewer, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// NormalizeUsername is the form usernames are stored and looked up in.
func NormalizeUsername(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (db *DB) CreateUser(username, passHash string, role Role) (int64, error) {
	name := NormalizeUsername(username)
	if name == "" {
		return 0, ErrInvalidUser
	}
	role, err := ParseRole(string(role))
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := db.conn.Exec(`INSERT INTO users(username, pass_hash, role, created_at) VALUES(?,?,?,?)`,
		name, passHash, string(role), now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, name)
		}
		return 0, fmt.Errorf("create user %s: %w", name, err)
	}
	return res.LastInsertId()
}

// GetUserByUsername returns the user and its password hash.
func (db *DB) GetUserByUsername(username string) (User, string, error) {
	row := db.conn.QueryRow(`SELECT id, username, role, created_at, pass_hash FROM users WHERE username=?`,
		NormalizeUsername(username))
	var ph string
	u, err := scanUser(row, &ph)
	if err != nil {
		return User{}, "", err
	}
	return u, ph, nil
}

func (db *DB) CreateSession(userID int64, token string, expires time.Time) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return execOne(db.conn, `INSERT INTO sessions(token, user_id, expires_at, created_at) VALUES(?,?,?,?)`,
		token, userID, expires.UTC().Format(time.RFC3339Nano), now)
}

// GetSession resolves an unexpired session token to its user.
func (db *DB) GetSession(token string) (User, error) {
	row := db.conn.QueryRow(`
SELECT u.id, u.username, u.role, u.created_at
FROM sessions s JOIN users u ON s.user_id=u.id
WHERE s.token=? AND s.expires_at > ?`, token, time.Now().UTC().Format(time.RFC3339Nano))
	return scanUser(row)
}

func (db *DB) DeleteSession(token string) error {
	return execOne(db.conn, `DELETE FROM sessions WHERE token=?`, token)
}

// PurgeSessions deletes sessions that expired before now.
func (db *DB) PurgeSessions(now time.Time) (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, now.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanUser(row *sql.Row, passHash ...*string) (User, error) {
	var u User
	var role, created string
	dest := []any{&u.ID, &u.Username, &role, &created}
	for _, p := range passHash {
		dest = append(dest, p)
	}
	if err := row.Scan(dest...); err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	u.CreatedAt = parseTime(created)
	return u, nil
}

// AuditEntry is one recorded API or CLI action.
type AuditEntry struct {
	ID       int64          `json:"id"`
	At       time.Time      `json:"at"`
	Username string         `json:"username"`
	Action   string         `json:"action"`
	Resource string         `json:"resource,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`
}

func (db *DB) LogAudit(username, action, resource string, meta map[string]any) error {
	b, _ := json.Marshal(meta)
	_, err := db.conn.Exec(`INSERT INTO audit(ts, username, action, resource, meta_json) VALUES(?,?,?,?,?)`,
		time.Now().UTC().Format(time.RFC3339Nano), username, action, resource, string(b))
	return err
}

// ListAudit returns the newest entries first. An empty action matches every
// action; one ending in ':' matches that prefix, e.g. "waiver:".
func (db *DB) ListAudit(action string, limit int) ([]AuditEntry, error) {
	q := `SELECT id, ts, COALESCE(username,''), action, COALESCE(resource,''), COALESCE(meta_json,'') FROM audit`
	var args []any
	switch {
	case action == "":
	case strings.HasSuffix(action, ":"):
		q += ` WHERE action LIKE ?`
		args = append(args, action+"%")
	default:
		q += ` WHERE action = ?`
		args = append(args, action)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var ts, meta string
		if err := rows.Scan(&e.ID, &ts, &e.Username, &e.Action, &e.Resource, &meta); err != nil {
			return nil, err
		}
		e.At = parseTime(ts)
		if meta != "" && meta != "null" {
			_ = json.Unmarshal([]byte(meta), &e.Meta)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func execOne(db *sql.DB, q string, args ...any) error {
	res, err := db.Exec(q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
