// Copyright (c) 2026 ShieldEye Project
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shieldeye/shieldeye-go/internal/model"
)

// Queries is the typed statement layer over the encrypted store. Every
// statement is parameterized; no caller-supplied value is ever interpolated
// into query text. Rows are mapped into the model structs at this boundary
// so downstream code never indexes columns by name.
type Queries struct {
	db *sql.DB
}

// New creates a Queries instance bound to the given database.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

const eventLogColumns = `id, timestamp, level, category, event_type, source, message, stack, tags,
	app_name, app_version, user_id, user_ip, user_method, user_endpoint, user_status, user_agent`

// InsertEventLogs bulk-inserts event logs inside a single transaction,
// ignoring rows whose id already exists. Ingestion is idempotent: a
// duplicate id is skipped, never overwritten.
func (q *Queries) InsertEventLogs(ctx context.Context, logs []model.EventLog) error {
	if len(logs) == 0 {
		return nil
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO event_logs (`+eventLogColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare bulk insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, l := range logs {
		if _, err := stmt.ExecContext(ctx,
			l.ID, l.Timestamp, l.Level, l.Category, l.EventType, l.Source,
			l.Message, l.Stack, l.Tags, l.AppName, l.AppVersion,
			l.UserID, l.UserIP, l.UserMethod, l.UserEndpoint, l.UserStatus, l.UserAgent,
		); err != nil {
			return fmt.Errorf("inserting event log %s: %w", l.ID, err)
		}
	}

	return tx.Commit()
}

// ListEventLogs returns all event logs ordered by timestamp ascending.
func (q *Queries) ListEventLogs(ctx context.Context) ([]model.EventLog, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+eventLogColumns+` FROM event_logs ORDER BY timestamp`)
	if err != nil {
		return nil, fmt.Errorf("listing event logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var logs []model.EventLog
	for rows.Next() {
		var l model.EventLog
		if err := rows.Scan(
			&l.ID, &l.Timestamp, &l.Level, &l.Category, &l.EventType, &l.Source,
			&l.Message, &l.Stack, &l.Tags, &l.AppName, &l.AppVersion,
			&l.UserID, &l.UserIP, &l.UserMethod, &l.UserEndpoint, &l.UserStatus, &l.UserAgent,
		); err != nil {
			return nil, fmt.Errorf("scanning event log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// EventLogDateRange returns the earliest and latest event timestamps.
// Both are empty strings when the table has no rows.
func (q *Queries) EventLogDateRange(ctx context.Context) (first, last string, err error) {
	var minTS, maxTS sql.NullString
	err = q.db.QueryRowContext(ctx,
		`SELECT datetime(MIN(timestamp)), datetime(MAX(timestamp)) FROM event_logs`,
	).Scan(&minTS, &maxTS)
	if err != nil {
		return "", "", fmt.Errorf("querying date range: %w", err)
	}
	return minTS.String, maxTS.String, nil
}

// EventLogLevelCounts returns per-level event totals.
func (q *Queries) EventLogLevelCounts(ctx context.Context) (model.LevelCounts, error) {
	var c model.LevelCounts
	err := q.db.QueryRowContext(ctx, `
		SELECT
			COUNT(CASE WHEN level = ? THEN 1 END),
			COUNT(CASE WHEN level = ? THEN 1 END),
			COUNT(CASE WHEN level = ? THEN 1 END),
			COUNT(CASE WHEN level = ? THEN 1 END)
		FROM event_logs`,
		model.LevelInfo, model.LevelWarn, model.LevelError, model.LevelCritical,
	).Scan(&c.Info, &c.Warn, &c.Error, &c.Critical)
	if err != nil {
		return model.LevelCounts{}, fmt.Errorf("counting levels: %w", err)
	}
	return c, nil
}

// EventLogCategoryCount returns the number of distinct categories.
func (q *Queries) EventLogCategoryCount(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT category) FROM event_logs`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting categories: %w", err)
	}
	return n, nil
}

// DeleteEventLog removes a single event log by id. The operation exists in
// the storage contract but is not exposed through the repository in this
// version.
func (q *Queries) DeleteEventLog(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM event_logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting event log %s: %w", id, err)
	}
	return nil
}

// DeleteEventLogsRange removes event logs between two timestamps inclusive.
// Not exposed through the repository in this version.
func (q *Queries) DeleteEventLogsRange(ctx context.Context, start, end string) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM event_logs WHERE timestamp BETWEEN ? AND ?`, start, end)
	if err != nil {
		return fmt.Errorf("deleting event logs %s..%s: %w", start, end, err)
	}
	return nil
}

// InsertAlerts bulk-inserts alerts inside a single transaction, ignoring
// duplicate ids.
func (q *Queries) InsertAlerts(ctx context.Context, alerts []model.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO alert_logs (id, timestamp, level, category, event_type, message, log_id, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare bulk insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, a := range alerts {
		if _, err := stmt.ExecContext(ctx,
			a.ID, a.Timestamp, a.Level, a.Category, a.EventType, a.Message, a.LogID, a.Status,
		); err != nil {
			return fmt.Errorf("inserting alert %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// ListAlerts returns all alerts ordered by timestamp ascending.
func (q *Queries) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, timestamp, level, category, event_type, message, log_id, status
		 FROM alert_logs ORDER BY timestamp`)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var alerts []model.Alert
	for rows.Next() {
		var a model.Alert
		if err := rows.Scan(
			&a.ID, &a.Timestamp, &a.Level, &a.Category, &a.EventType,
			&a.Message, &a.LogID, &a.Status,
		); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// MarkAlertRead sets a single alert's status to read. The transition is
// monotonic: there is no statement anywhere that sets status back to unread.
func (q *Queries) MarkAlertRead(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE alert_logs SET status = ? WHERE id = ?`, model.AlertStatusRead, id)
	if err != nil {
		return fmt.Errorf("marking alert %s read: %w", id, err)
	}
	return nil
}

// MarkAllAlertsRead sets every unread alert to read.
func (q *Queries) MarkAllAlertsRead(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE alert_logs SET status = ? WHERE status = ?`,
		model.AlertStatusRead, model.AlertStatusUnread)
	if err != nil {
		return fmt.Errorf("marking all alerts read: %w", err)
	}
	return nil
}

// DeleteAlert removes a single alert by id.
func (q *Queries) DeleteAlert(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM alert_logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting alert %s: %w", id, err)
	}
	return nil
}

// DeleteAllAlerts removes every alert.
func (q *Queries) DeleteAllAlerts(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM alert_logs`)
	if err != nil {
		return fmt.Errorf("deleting all alerts: %w", err)
	}
	return nil
}

// AlertCounts returns read/unread alert totals.
func (q *Queries) AlertCounts(ctx context.Context) (model.AlertCounts, error) {
	var c model.AlertCounts
	err := q.db.QueryRowContext(ctx, `
		SELECT
			COUNT(CASE WHEN status = ? THEN 1 END),
			COUNT(CASE WHEN status = ? THEN 1 END)
		FROM alert_logs`,
		model.AlertStatusRead, model.AlertStatusUnread,
	).Scan(&c.Read, &c.Unread)
	if err != nil {
		return model.AlertCounts{}, fmt.Errorf("counting alerts: %w", err)
	}
	return c, nil
}

// UpsertPreferences writes the singleton policy row: insert when absent,
// otherwise a full update of all three flags together.
func (q *Queries) UpsertPreferences(ctx context.Context, p model.PreferenceSetting) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO preference_settings (id, updated_at, warn, error, critical)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			warn = excluded.warn,
			error = excluded.error,
			critical = excluded.critical`,
		p.UpdatedAt, p.Warn, p.Error, p.Critical)
	if err != nil {
		return fmt.Errorf("upserting preferences: %w", err)
	}
	return nil
}

// GetPreferences returns the policy row and whether one exists.
func (q *Queries) GetPreferences(ctx context.Context) (model.PreferenceSetting, bool, error) {
	var p model.PreferenceSetting
	err := q.db.QueryRowContext(ctx,
		`SELECT updated_at, warn, error, critical FROM preference_settings WHERE id = 1`,
	).Scan(&p.UpdatedAt, &p.Warn, &p.Error, &p.Critical)
	if err == sql.ErrNoRows {
		return model.PreferenceSetting{}, false, nil
	}
	if err != nil {
		return model.PreferenceSetting{}, false, fmt.Errorf("reading preferences: %w", err)
	}
	return p, true, nil
}

// InsertActivity appends one audit-trail entry. The activity log is strictly
// insert-only; no update or delete statement exists for it.
func (q *Queries) InsertActivity(ctx context.Context, a model.ActivityLog) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO activity_logs (id, timestamp, level, event_type, source, message, stack, tags, app_name, app_version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Timestamp, a.Level, a.EventType, a.Source, a.Message,
		a.Stack, a.Tags, a.AppName, a.AppVersion)
	if err != nil {
		return fmt.Errorf("inserting activity entry: %w", err)
	}
	return nil
}

// CountActivity returns the number of audit-trail entries. Used by tests;
// the application itself never reads the trail back.
func (q *Queries) CountActivity(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_logs`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting activity entries: %w", err)
	}
	return n, nil
}
