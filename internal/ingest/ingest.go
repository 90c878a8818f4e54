// Copyright (c) 2026 ShieldEye Project
// SPDX-License-Identifier: GPL-3.0-or-later

// Package ingest parses event-log upload files. A file holds either a
// single JSON object or an array of objects. Validation is strict: one
// record missing a required key rejects the whole batch, naming the key, so
// no partial upload is ever persisted.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/shieldeye/shieldeye-go/internal/model"
)

// MissingFieldError reports a record that lacks a required key.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing key %q", e.Field)
}

// flexString accepts JSON strings and numbers; log producers are not
// consistent about quoting numeric fields like HTTP status.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// Record is one raw uploaded log entry. Pointer fields distinguish an
// absent key from an empty value.
type Record struct {
	ID        *string `json:"_id"`
	Timestamp *struct {
		Date *string `json:"$date"`
	} `json:"timestamp"`
	Level     *string          `json:"level"`
	Category  *string          `json:"category"`
	EventType *string          `json:"event_type"`
	Source    *string          `json:"source"`
	Message   *string          `json:"message"`
	Stack     *string          `json:"stack"`
	Tags      *json.RawMessage `json:"tags"`
	App       *struct {
		Name    *string `json:"name"`
		Version *string `json:"version"`
	} `json:"app"`
	User *struct {
		ID        *flexString `json:"id"`
		IP        *string     `json:"ip"`
		Method    *string     `json:"method"`
		Endpoint  *string     `json:"endpoint"`
		Status    *flexString `json:"status"`
		UserAgent *string     `json:"user_agent"`
	} `json:"user"`
}

// Parse decodes an upload document, accepting a single object or an array.
func Parse(data []byte) ([]Record, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty upload")
	}

	if trimmed[0] == '[' {
		var records []Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parsing upload: %w", err)
		}
		return records, nil
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parsing upload: %w", err)
	}
	return []Record{record}, nil
}

// ParseFile reads and decodes an upload file.
func ParseFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading upload file: %w", err)
	}
	return Parse(data)
}

// ToEventLogs validates a parsed batch and converts it to typed rows.
// The first missing required key aborts the whole batch.
func ToEventLogs(records []Record) ([]model.EventLog, error) {
	logs := make([]model.EventLog, 0, len(records))
	for _, rec := range records {
		l, err := rec.toEventLog()
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, nil
}

// toEventLog maps one record to a typed row, validating every required key.
func (r Record) toEventLog() (model.EventLog, error) {
	var l model.EventLog

	required := []struct {
		key   string
		value *string
	}{
		{"_id", r.ID},
		{"level", r.Level},
		{"category", r.Category},
		{"event_type", r.EventType},
		{"source", r.Source},
		{"message", r.Message},
		{"stack", r.Stack},
	}
	for _, f := range required {
		if f.value == nil {
			return l, &MissingFieldError{Field: f.key}
		}
	}
	if r.Timestamp == nil {
		return l, &MissingFieldError{Field: "timestamp"}
	}
	if r.Timestamp.Date == nil {
		return l, &MissingFieldError{Field: "timestamp.$date"}
	}
	if r.Tags == nil {
		return l, &MissingFieldError{Field: "tags"}
	}
	if r.App == nil {
		return l, &MissingFieldError{Field: "app"}
	}
	if r.App.Name == nil {
		return l, &MissingFieldError{Field: "app.name"}
	}
	if r.App.Version == nil {
		return l, &MissingFieldError{Field: "app.version"}
	}
	if r.User == nil {
		return l, &MissingFieldError{Field: "user"}
	}
	userFields := []struct {
		key   string
		value bool
	}{
		{"user.id", r.User.ID != nil},
		{"user.ip", r.User.IP != nil},
		{"user.method", r.User.Method != nil},
		{"user.endpoint", r.User.Endpoint != nil},
		{"user.status", r.User.Status != nil},
		{"user.user_agent", r.User.UserAgent != nil},
	}
	for _, f := range userFields {
		if !f.value {
			return l, &MissingFieldError{Field: f.key}
		}
	}

	l = model.EventLog{
		ID:           *r.ID,
		Timestamp:    *r.Timestamp.Date,
		Level:        *r.Level,
		Category:     *r.Category,
		EventType:    *r.EventType,
		Source:       *r.Source,
		Message:      *r.Message,
		Stack:        *r.Stack,
		Tags:         string(*r.Tags),
		AppName:      *r.App.Name,
		AppVersion:   *r.App.Version,
		UserID:       string(*r.User.ID),
		UserIP:       *r.User.IP,
		UserMethod:   *r.User.Method,
		UserEndpoint: *r.User.Endpoint,
		UserStatus:   string(*r.User.Status),
		UserAgent:    *r.User.UserAgent,
	}
	return l, nil
}
