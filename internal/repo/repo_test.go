package repo

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shieldeye/shieldeye-go/internal/model"
	"github.com/shieldeye/shieldeye-go/internal/store"
	"github.com/shieldeye/shieldeye-go/internal/testutil"
)

func testRepo(t *testing.T) (*Repository, *sql.DB) {
	t.Helper()
	db := testutil.TestDB(t)
	return New(db, testutil.TestLogger()), db
}

func TestAppendLogsWritesAudit(t *testing.T) {
	r, db := testRepo(t)
	ctx := context.Background()

	logs := []model.EventLog{{
		ID: "log-1", Timestamp: "2026-08-01T10:00:00Z", Level: model.LevelWarn,
		Category: "auth", EventType: "login_failed", Source: "api",
		Message: "invalid credentials", Tags: "[]",
	}}
	if err := r.AppendLogs(ctx, logs); err != nil {
		t.Fatalf("AppendLogs: %v", err)
	}

	got, err := r.Logs(ctx)
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if len(got) != 1 || got[0].ID != "log-1" {
		t.Fatalf("Logs = %+v, want the appended row", got)
	}

	// One audit entry per successful mutation, tagged by the method name.
	var tags string
	err = db.QueryRow(`SELECT tags FROM activity_logs WHERE event_type = 'event log creation'`).Scan(&tags)
	if err != nil {
		t.Fatalf("audit entry missing: %v", err)
	}
	if tags != "AppendLogs" {
		t.Errorf("audit tag = %q, want AppendLogs", tags)
	}
}

func TestSavePreferencesTwice(t *testing.T) {
	r, _ := testRepo(t)
	ctx := context.Background()

	if err := r.SavePreferences(ctx, true, false, true); err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}
	if err := r.SavePreferences(ctx, false, true, false); err != nil {
		t.Fatalf("second SavePreferences: %v", err)
	}

	p, ok, err := r.Preferences(ctx)
	if err != nil {
		t.Fatalf("Preferences: %v", err)
	}
	if !ok {
		t.Fatal("preferences row should exist")
	}
	// The most recent call wins in full, not per-flag.
	if p.Warn != "" || p.Error != model.LevelError || p.Critical != "" {
		t.Errorf("flags = %+v, want only error enabled", p)
	}
}

func TestPreferencesAbsent(t *testing.T) {
	r, _ := testRepo(t)

	p, ok, err := r.Preferences(context.Background())
	if err != nil {
		t.Fatalf("Preferences: %v", err)
	}
	if ok {
		t.Error("no row saved, ok should be false")
	}
	if len(p.EnabledLevels()) != 0 {
		t.Errorf("zero-value policy enables levels: %v", p.EnabledLevels())
	}
}

func TestAlertLifecycle(t *testing.T) {
	r, _ := testRepo(t)
	ctx := context.Background()

	alerts := []model.Alert{
		{ID: "al-1", Timestamp: "2026-08-01 10:00:00", Level: model.LevelWarn,
			LogID: "log-1", Status: model.AlertStatusUnread},
		{ID: "al-2", Timestamp: "2026-08-01 10:01:00", Level: model.LevelCritical,
			LogID: "log-2", Status: model.AlertStatusUnread},
	}
	if err := r.CreateAlerts(ctx, alerts); err != nil {
		t.Fatalf("CreateAlerts: %v", err)
	}

	if err := r.MarkAlertRead(ctx, "al-1"); err != nil {
		t.Fatalf("MarkAlertRead: %v", err)
	}
	counts, err := r.AlertCounts(ctx)
	if err != nil {
		t.Fatalf("AlertCounts: %v", err)
	}
	if counts.Read != 1 || counts.Unread != 1 {
		t.Errorf("counts = %+v, want 1/1", counts)
	}

	if err := r.MarkAllAlertsRead(ctx); err != nil {
		t.Fatalf("MarkAllAlertsRead: %v", err)
	}
	if err := r.DeleteAlert(ctx, "al-1"); err != nil {
		t.Fatalf("DeleteAlert: %v", err)
	}
	if err := r.DeleteAllAlerts(ctx); err != nil {
		t.Fatalf("DeleteAllAlerts: %v", err)
	}

	got, err := r.Alerts(ctx)
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d alerts, want 0", len(got))
	}
}

func TestDateRangeEmpty(t *testing.T) {
	r, _ := testRepo(t)

	first, last, err := r.DateRange(context.Background())
	if err != nil {
		t.Fatalf("DateRange: %v", err)
	}
	if first != "" || last != "" {
		t.Errorf("got (%q, %q), want empty pair", first, last)
	}
}

func TestRecordActivityBestEffort(t *testing.T) {
	db := testutil.TestDB(t)
	r := New(db, testutil.TestLoggerSilent())
	ctx := context.Background()

	r.RecordActivity(ctx, model.ActivityLevelError, "update check", "update checker",
		"Failed: timeout", "net/http: timeout", "Checker.Check")

	n, err := store.New(db).CountActivity(ctx)
	if err != nil {
		t.Fatalf("CountActivity: %v", err)
	}
	if n != 1 {
		t.Fatalf("activity count = %d, want 1", n)
	}

	// A closed database must not turn the audit write into a failure.
	_ = db.Close()
	r.RecordActivity(ctx, model.ActivityLevelInfo, "update check", "update checker",
		"swallowed", "", "Checker.Check")
}
