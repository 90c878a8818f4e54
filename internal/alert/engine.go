// Copyright (c) 2026 ShieldEye Project
// SPDX-License-Identifier: GPL-3.0-or-later

// Package alert derives alert records from freshly ingested log entries
// under the current preference policy.
package alert

import (
	"strings"

	"github.com/google/uuid"

	"github.com/shieldeye/shieldeye-go/internal/ingest"
	"github.com/shieldeye/shieldeye-go/internal/model"
)

// Scan matches a batch of raw log records against the policy and returns
// the alert drafts to persist. Records without a level are skipped; level
// comparison is case-insensitive. A matched record missing any field the
// draft needs aborts the whole scan: an alert must be traceable to exactly
// one complete source log, and partial results are worse than none.
func Scan(entries []ingest.Record, policy model.PreferenceSetting) ([]model.Alert, error) {
	enabled := make(map[string]struct{})
	for _, level := range policy.EnabledLevels() {
		enabled[strings.ToLower(strings.TrimSpace(level))] = struct{}{}
	}
	if len(enabled) == 0 {
		return nil, nil
	}

	var drafts []model.Alert
	for _, entry := range entries {
		if entry.Level == nil || *entry.Level == "" {
			continue
		}
		if _, ok := enabled[strings.ToLower(*entry.Level)]; !ok {
			continue
		}

		switch {
		case entry.ID == nil:
			return nil, &ingest.MissingFieldError{Field: "_id"}
		case entry.Category == nil:
			return nil, &ingest.MissingFieldError{Field: "category"}
		case entry.EventType == nil:
			return nil, &ingest.MissingFieldError{Field: "event_type"}
		case entry.Message == nil:
			return nil, &ingest.MissingFieldError{Field: "message"}
		}

		drafts = append(drafts, model.Alert{
			ID:        uuid.NewString(),
			Timestamp: model.Now(),
			Level:     *entry.Level,
			Category:  *entry.Category,
			EventType: *entry.EventType,
			Message:   *entry.Message,
			LogID:     *entry.ID,
			Status:    model.AlertStatusUnread,
		})
	}

	return drafts, nil
}
