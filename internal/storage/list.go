package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/codewithboateng/modlint/internal/ir"
)

// ListRuns returns a lightweight list of runs with counts, newest first.
func (db *DB) ListRuns(limit, offset int) ([]RunRow, error) {
	const q = `
		SELECT r.id, r.started_at, r.source, r.ir_version, r.valid, r.files, r.errors, r.warnings, r.cycles,
		       (SELECT COUNT(1) FROM findings f WHERE f.run_id = r.id) AS findings
		  FROM runs r
		 ORDER BY r.started_at DESC, r.id DESC
		 LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var rr RunRow
		var startedAtStr string
		var valid int
		if err := rows.Scan(&rr.ID, &startedAtStr, &rr.Source, &rr.IRVersion, &valid,
			&rr.Files, &rr.Errors, &rr.Warnings, &rr.Cycles, &rr.Findings); err != nil {
			return nil, err
		}
		rr.Valid = valid != 0
		rr.StartedAt = parseTime(startedAtStr)
		out = append(out, rr)
	}
	return out, rows.Err()
}

// ListFindings returns findings for a run at or above a minimum severity.
func (db *DB) ListFindings(runID string, minSeverity ir.Severity) ([]ir.Finding, error) {
	const q = `
		SELECT id, document, element, rule_id, severity, message, suggestion, evidence
		  FROM findings
		 WHERE run_id = ?
		   AND (CASE severity WHEN 'ERROR' THEN 3 WHEN 'WARNING' THEN 2 ELSE 1 END) >= ?
		 ORDER BY
		       (CASE severity WHEN 'ERROR' THEN 3 WHEN 'WARNING' THEN 2 ELSE 1 END) DESC,
		       document, rule_id, element, id`
	rows, err := db.conn.Query(q, runID, minSeverity.Rank())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ir.Finding
	for rows.Next() {
		var f ir.Finding
		var sev string
		if err := rows.Scan(&f.ID, &f.Document, &f.Element, &f.RuleID, &sev, &f.Message, &f.Suggestion, &f.Evidence); err != nil {
			return nil, err
		}
		f.Severity = ir.Severity(sev)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (db *DB) HasRun(id string) (bool, error) {
	const q = `SELECT 1 FROM runs WHERE id = ? LIMIT 1`
	var one int
	err := db.conn.QueryRow(q, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// parseTime accepts RFC3339Nano first, then RFC3339; anything else is the zero time.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
