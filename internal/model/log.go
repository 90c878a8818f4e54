package model

import "time"

// Log levels carried by ingested event records.
const (
	LevelInfo     = "info"
	LevelWarn     = "warn"
	LevelError    = "error"
	LevelCritical = "critical"
)

// EventLog represents one immutable ingested event-log record.
// The ID is supplied by the log source and globally unique; duplicate
// ingestion is idempotent (insert-or-ignore, never overwrite).
type EventLog struct {
	ID           string
	Timestamp    string
	Level        string
	Category     string
	EventType    string
	Source       string
	Message      string
	Stack        string
	Tags         string // JSON array, serialized at ingestion
	AppName      string
	AppVersion   string
	UserID       string
	UserIP       string
	UserMethod   string
	UserEndpoint string
	UserStatus   string
	UserAgent    string
}

// LevelCounts holds per-level event totals for the summary surface.
type LevelCounts struct {
	Info     int64
	Warn     int64
	Error    int64
	Critical int64
}

// Total returns the sum across all levels.
func (c LevelCounts) Total() int64 {
	return c.Info + c.Warn + c.Error + c.Critical
}

// Now returns the wall-clock timestamp format used for generated records.
func Now() string {
	return time.Now().Format("2006-01-02 15:04:05")
}
