package storage

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithboateng/modlint/internal/ir"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "modlint.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.CreateSchema())
	return db
}

func sampleReport(id string, at time.Time) *ir.Report {
	r := &ir.Report{
		ID:        id,
		StartedAt: at,
		Source:    "/mods/Native/ModuleData",
		IRVersion: ir.Version,
		Files: []ir.FileResult{
			{Document: "items", Findings: []ir.Finding{
				{ID: "ITEM-VALUE-RANGE-1", Document: "items", Element: "item_a", RuleID: "ITEM-VALUE-RANGE", Severity: ir.SeverityError, Message: "bad value"},
				{ID: "ID-FORMAT-1", Document: "items", Element: "a-b", RuleID: "ID-FORMAT", Severity: ir.SeverityWarning, Message: "bad id"},
			}},
			{Document: "skills", Findings: []ir.Finding{
				{ID: "X-1", Document: "skills", RuleID: "X", Severity: ir.SeverityInfo, Message: "note"},
			}},
		},
	}
	r.Recount()
	return r
}

func TestSaveLoadAndListRuns(t *testing.T) {
	db := openTemp(t)
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, db.SaveRun(sampleReport("run-a", t0)))
	require.NoError(t, db.SaveRun(sampleReport("run-b", t0.Add(time.Hour))))
	// upsert keeps a single row
	require.NoError(t, db.SaveRun(sampleReport("run-a", t0)))

	got, err := db.LoadRun("run-a")
	require.NoError(t, err)
	assert.Equal(t, "run-a", got.ID)
	assert.Equal(t, 1, got.Totals.Errors)
	assert.False(t, got.Valid)

	latest, err := db.LoadLatestRun()
	require.NoError(t, err)
	assert.Equal(t, "run-b", latest.ID)

	rows, err := db.ListRuns(10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "run-b", rows[0].ID)
	assert.Equal(t, 3, rows[0].Findings)
	assert.Equal(t, 1, rows[0].Errors)
	assert.False(t, rows[0].Valid)

	ok, err := db.HasRun("run-a")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = db.HasRun("nope")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = db.LoadRun("nope")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestListFindingsMinSeverity(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, db.SaveRun(sampleReport("r", time.Now())))

	all, err := db.ListFindings("r", ir.SeverityInfo)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ir.SeverityError, all[0].Severity)

	warn, err := db.ListFindings("r", ir.SeverityWarning)
	require.NoError(t, err)
	assert.Len(t, warn, 2)

	errs, err := db.ListFindings("r", ir.SeverityError)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "item_a", errs[0].Element)
}

func TestWaiversLifecycle(t *testing.T) {
	db := openTemp(t)
	id, err := db.CreateWaiver(Waiver{
		RuleID: "ID-FORMAT", Document: "items", Reason: "legacy ids",
		ExpiresAt: time.Now().Add(24 * time.Hour), CreatedBy: "alice",
	})
	require.NoError(t, err)
	_, err = db.CreateWaiver(Waiver{
		RuleID: "ID-UNIQUE", Reason: "expired", ExpiresAt: time.Now().Add(-time.Hour), CreatedBy: "alice",
	})
	require.NoError(t, err)

	active, err := db.ListWaivers(true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "items", active[0].Document)
	assert.Empty(t, active[0].Element)

	require.NoError(t, db.RevokeWaiver(id))
	assert.ErrorIs(t, db.RevokeWaiver(id), ErrNoRowsAffected)

	active, err = db.ListWaivers(true)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := db.ListWaivers(false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.NotNil(t, all[1].RevokedAt)
}

func TestUsersAndSessions(t *testing.T) {
	db := openTemp(t)
	uid, err := db.CreateUser("alice", "hash", "")
	require.NoError(t, err)

	u, hash, err := db.GetUserByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, uid, u.ID)
	assert.Equal(t, "hash", hash)
	assert.Equal(t, RoleViewer, u.Role)
	assert.False(t, u.IsAdmin())

	require.NoError(t, db.CreateSession(uid, "tok", time.Now().Add(time.Hour)))
	got, err := db.GetSession("tok")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	require.NoError(t, db.CreateSession(uid, "old", time.Now().Add(-time.Hour)))
	_, err = db.GetSession("old")
	assert.Error(t, err)

	require.NoError(t, db.DeleteSession("tok"))
	_, err = db.GetSession("tok")
	assert.Error(t, err)
	n, err := db.PurgeSessions(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCreateUserValidation(t *testing.T) {
	db := openTemp(t)
	_, err := db.CreateUser("  Bob ", "hash", RoleAdmin)
	require.NoError(t, err)

	u, _, err := db.GetUserByUsername("BOB")
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
	assert.True(t, u.IsAdmin())

	_, err = db.CreateUser("bob", "hash", RoleViewer)
	assert.ErrorIs(t, err, ErrUserExists)
	_, err = db.CreateUser(" ", "hash", RoleViewer)
	assert.ErrorIs(t, err, ErrInvalidUser)
	_, err = db.CreateUser("carol", "hash", "owner")
	assert.ErrorIs(t, err, ErrInvalidRole)

	r, err := ParseRole("Admin")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)
}

func TestListAudit(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, db.LogAudit("alice", "login", "", map[string]any{"ip": "127.0.0.1"}))
	require.NoError(t, db.LogAudit("alice", "waiver:create", "", map[string]any{"rule": "ID-FORMAT"}))
	require.NoError(t, db.LogAudit("bob", "waiver:revoke", "", nil))

	all, err := db.ListAudit("", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "waiver:revoke", all[0].Action)
	assert.Nil(t, all[0].Meta)

	waivers, err := db.ListAudit("waiver:", 10)
	require.NoError(t, err)
	require.Len(t, waivers, 2)
	assert.Equal(t, "ID-FORMAT", waivers[1].Meta["rule"])

	logins, err := db.ListAudit("login", 1)
	require.NoError(t, err)
	require.Len(t, logins, 1)
	assert.Equal(t, "alice", logins[0].Username)
	assert.Equal(t, "127.0.0.1", logins[0].Meta["ip"])
}
