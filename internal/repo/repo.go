// Copyright (c) 2026 ShieldEye Project
// SPDX-License-Identifier: GPL-3.0-or-later

// Package repo provides the CRUD facade over the four persistent entity
// tables. Every mutating operation additionally appends one audit-trail
// entry describing its outcome, tagged with the originating method name,
// supporting later forensic review. Audit writes are best-effort: a failure
// to record the trail never cascades into the caller's result.
package repo

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shieldeye/shieldeye-go/internal/model"
	"github.com/shieldeye/shieldeye-go/internal/store"
	"github.com/shieldeye/shieldeye-go/internal/version"
)

// auditSource names this subsystem on audit-trail entries.
const auditSource = "log repository"

// Repository is the Log Repository over the storage engine.
type Repository struct {
	queries *store.Queries
	logger  *slog.Logger
}

// New creates a Repository bound to the given database.
func New(db *sql.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		queries: store.New(db),
		logger:  logger,
	}
}

// AppendLogs bulk-inserts ingested event logs, ignoring duplicate ids.
func (r *Repository) AppendLogs(ctx context.Context, logs []model.EventLog) error {
	if err := r.queries.InsertEventLogs(ctx, logs); err != nil {
		r.audit(ctx, model.ActivityLevelError, "event log creation",
			"Failed to append event logs", err, "AppendLogs")
		return err
	}
	r.audit(ctx, model.ActivityLevelInfo, "event log creation",
		"Successfully appended event logs", nil, "AppendLogs")
	return nil
}

// Logs returns all event logs ordered by timestamp ascending.
func (r *Repository) Logs(ctx context.Context) ([]model.EventLog, error) {
	logs, err := r.queries.ListEventLogs(ctx)
	if err != nil {
		r.audit(ctx, model.ActivityLevelError, "event log fetch",
			"Failed to fetch event logs", err, "Logs")
		return nil, err
	}
	return logs, nil
}

// DateRange returns the earliest and latest stored event timestamps; both
// are empty strings when no rows exist.
func (r *Repository) DateRange(ctx context.Context) (first, last string, err error) {
	return r.queries.EventLogDateRange(ctx)
}

// LevelCounts returns per-level event totals for the summary surface.
func (r *Repository) LevelCounts(ctx context.Context) (model.LevelCounts, error) {
	return r.queries.EventLogLevelCounts(ctx)
}

// CategoryCount returns the number of distinct event categories.
func (r *Repository) CategoryCount(ctx context.Context) (int64, error) {
	return r.queries.EventLogCategoryCount(ctx)
}

// CreateAlerts bulk-inserts derived alerts, ignoring duplicate ids.
func (r *Repository) CreateAlerts(ctx context.Context, alerts []model.Alert) error {
	if err := r.queries.InsertAlerts(ctx, alerts); err != nil {
		r.audit(ctx, model.ActivityLevelError, "alert creation",
			"Failed to create alert", err, "CreateAlerts")
		return err
	}
	r.audit(ctx, model.ActivityLevelInfo, "alert creation",
		"Successfully created alert", nil, "CreateAlerts")
	return nil
}

// Alerts returns all alerts ordered by timestamp ascending.
func (r *Repository) Alerts(ctx context.Context) ([]model.Alert, error) {
	alerts, err := r.queries.ListAlerts(ctx)
	if err != nil {
		r.audit(ctx, model.ActivityLevelError, "alert fetch",
			"Failed to fetch alerts", err, "Alerts")
		return nil, err
	}
	return alerts, nil
}

// AlertCounts returns read/unread alert totals.
func (r *Repository) AlertCounts(ctx context.Context) (model.AlertCounts, error) {
	return r.queries.AlertCounts(ctx)
}

// MarkAlertRead sets a single alert's status to read.
func (r *Repository) MarkAlertRead(ctx context.Context, id string) error {
	if err := r.queries.MarkAlertRead(ctx, id); err != nil {
		r.audit(ctx, model.ActivityLevelError, "alert status",
			"Failed to mark alert "+id+" as read", err, "MarkAlertRead")
		return err
	}
	r.audit(ctx, model.ActivityLevelInfo, "alert status",
		"Successfully marked alert "+id+" as read", nil, "MarkAlertRead")
	return nil
}

// MarkAllAlertsRead sets every unread alert to read.
func (r *Repository) MarkAllAlertsRead(ctx context.Context) error {
	if err := r.queries.MarkAllAlertsRead(ctx); err != nil {
		r.audit(ctx, model.ActivityLevelError, "alert status",
			"Failed to mark all alerts as read", err, "MarkAllAlertsRead")
		return err
	}
	r.audit(ctx, model.ActivityLevelInfo, "alert status",
		"Successfully marked all alerts as read", nil, "MarkAllAlertsRead")
	return nil
}

// DeleteAlert removes a single alert by explicit user action.
func (r *Repository) DeleteAlert(ctx context.Context, id string) error {
	if err := r.queries.DeleteAlert(ctx, id); err != nil {
		r.audit(ctx, model.ActivityLevelError, "alert deletion",
			"Failed to delete alert "+id, err, "DeleteAlert")
		return err
	}
	r.audit(ctx, model.ActivityLevelInfo, "alert deletion",
		"Successfully deleted alert "+id, nil, "DeleteAlert")
	return nil
}

// DeleteAllAlerts removes every alert by explicit user action.
func (r *Repository) DeleteAllAlerts(ctx context.Context) error {
	if err := r.queries.DeleteAllAlerts(ctx); err != nil {
		r.audit(ctx, model.ActivityLevelError, "alert deletion",
			"Failed to delete all alerts", err, "DeleteAllAlerts")
		return err
	}
	r.audit(ctx, model.ActivityLevelInfo, "alert deletion",
		"Successfully deleted all alerts", nil, "DeleteAllAlerts")
	return nil
}

// SavePreferences upserts the singleton alert policy: insert when absent,
// otherwise a full update of all three flags together, never partial.
func (r *Repository) SavePreferences(ctx context.Context, warn, errLevel, critical bool) error {
	p := model.PreferenceSetting{UpdatedAt: model.Now()}
	if warn {
		p.Warn = model.LevelWarn
	}
	if errLevel {
		p.Error = model.LevelError
	}
	if critical {
		p.Critical = model.LevelCritical
	}

	if err := r.queries.UpsertPreferences(ctx, p); err != nil {
		r.audit(ctx, model.ActivityLevelError, "preferences creation",
			"Failed to update account preference settings", err, "SavePreferences")
		return err
	}
	r.audit(ctx, model.ActivityLevelInfo, "preferences creation",
		"Successfully updated account preference settings", nil, "SavePreferences")
	return nil
}

// Preferences returns the policy row and whether one has been saved.
func (r *Repository) Preferences(ctx context.Context) (model.PreferenceSetting, bool, error) {
	return r.queries.GetPreferences(ctx)
}

// RecordActivity appends an audit-trail entry on behalf of another
// subsystem (update checker, downloader, ingestion).
func (r *Repository) RecordActivity(ctx context.Context, level, eventType, source, message, stack, tags string) {
	entry := model.ActivityLog{
		ID:         uuid.NewString(),
		Timestamp:  model.Now(),
		Level:      level,
		EventType:  eventType,
		Source:     source,
		Message:    message,
		Stack:      stack,
		Tags:       tags,
		AppName:    version.AppName,
		AppVersion: version.App(),
	}
	if err := r.queries.InsertActivity(ctx, entry); err != nil {
		// Best-effort only. Never let a broken audit trail break the caller.
		r.logger.Debug("audit write failed", "event_type", eventType, "error", err)
	}
}

// audit appends the repository's own outcome entry.
func (r *Repository) audit(ctx context.Context, level, eventType, message string, cause error, tag string) {
	stack := ""
	if cause != nil {
		stack = cause.Error()
	}
	r.RecordActivity(ctx, level, eventType, auditSource, message, stack, tag)
}
