package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/codewithboateng/modlint/internal/ir"
)

// DB is the concrete storage backed by SQLite.
type DB struct {
	conn *sql.DB
}

// OpenSQLite opens (and creates if missing) a SQLite DB at path.
func OpenSQLite(path string) (*DB, error) {
	// Pragmas via DSN keep it portable with the modernc driver.
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	c, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &DB{conn: c}, nil
}

func (db *DB) Close() error { return db.conn.Close() }

// CreateSchema ensures tables exist.
func (db *DB) CreateSchema() error {
	_, err := db.conn.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id          TEXT PRIMARY KEY,
  started_at  TEXT,          -- RFC3339Nano
  source      TEXT,
  ir_version  TEXT,
  valid       INTEGER NOT NULL DEFAULT 0,
  files       INTEGER NOT NULL DEFAULT 0,
  errors      INTEGER NOT NULL DEFAULT 0,
  warnings    INTEGER NOT NULL DEFAULT 0,
  cycles      INTEGER NOT NULL DEFAULT 0,
  report_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS findings (
  id         TEXT,
  run_id     TEXT NOT NULL,
  document   TEXT,
  element    TEXT,
  rule_id    TEXT,
  severity   TEXT,
  message    TEXT,
  suggestion TEXT,
  evidence   TEXT,
  PRIMARY KEY (id, run_id),
  FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);
CREATE INDEX IF NOT EXISTS idx_findings_rule ON findings(rule_id);

CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT UNIQUE NOT NULL,
  pass_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'viewer',
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
  token TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL,
  expires_at TEXT NOT NULL,
  created_at TEXT NOT NULL,
  FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS audit (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts TEXT NOT NULL,
  username TEXT,
  action TEXT NOT NULL,
  resource TEXT,
  meta_json TEXT
);

CREATE TABLE IF NOT EXISTS waivers (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  rule_id     TEXT NOT NULL,
  document    TEXT,              -- optional exact match; NULL = any
  element     TEXT,              -- optional exact match; NULL = any
  pattern_sub TEXT,              -- optional substring to match evidence/message
  reason      TEXT NOT NULL,
  expires_at  TEXT NOT NULL,     -- RFC3339Nano
  created_by  TEXT NOT NULL,
  created_at  TEXT NOT NULL,
  revoked_at  TEXT               -- NULL = active
);
`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveRun upserts a report and (re)writes its findings.
func (db *DB) SaveRun(r *ir.Report) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	ts := r.StartedAt.UTC().Format(time.RFC3339Nano)

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO runs (id, started_at, source, ir_version, valid, files, errors, warnings, cycles, report_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET started_at=excluded.started_at, source=excluded.source,
           ir_version=excluded.ir_version, valid=excluded.valid, files=excluded.files,
           errors=excluded.errors, warnings=excluded.warnings, cycles=excluded.cycles,
           report_json=excluded.report_json`,
		r.ID, ts, r.Source, r.IRVersion, boolInt(r.Valid), r.Totals.Files,
		r.Totals.Errors, r.Totals.Warnings, r.Totals.Cycles, string(b),
	); err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM findings WHERE run_id = ?`, r.ID); err != nil {
		return err
	}
	findings := r.AllFindings()
	if len(findings) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO findings
			(id, run_id, document, element, rule_id, severity, message, suggestion, evidence)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, f := range findings {
			if _, err := stmt.Exec(
				f.ID,
				r.ID,
				f.Document,
				f.Element,
				f.RuleID,
				string(f.Severity),
				f.Message,
				f.Suggestion,
				f.Evidence,
			); err != nil {
				return fmt.Errorf("save finding %s: %w", f.ID, err)
			}
		}
	}

	return tx.Commit()
}

// LoadRun returns the full report (from stored JSON). A missing run wraps sql.ErrNoRows.
func (db *DB) LoadRun(id string) (ir.Report, error) {
	return db.loadRun(`SELECT report_json FROM runs WHERE id = ?`, id)
}

// LoadLatestRun returns the most recently started run.
func (db *DB) LoadLatestRun() (ir.Report, error) {
	return db.loadRun(`SELECT report_json FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`)
}

func (db *DB) loadRun(q string, args ...any) (ir.Report, error) {
	var s string
	if err := db.conn.QueryRow(q, args...).Scan(&s); err != nil {
		return ir.Report{}, fmt.Errorf("load run: %w", err)
	}
	var r ir.Report
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return ir.Report{}, fmt.Errorf("decode run: %w", err)
	}
	return r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
