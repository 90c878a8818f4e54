package model

// Alert statuses. Status transitions are monotonic: unread -> read only.
const (
	AlertStatusUnread = "unread"
	AlertStatusRead   = "read"
)

// Alert is a derived record produced by the matching engine. Timestamp is
// the generation time, not the source event time; LogID references the
// originating EventLog.
type Alert struct {
	ID        string
	Timestamp string
	Level     string
	Category  string
	EventType string
	Message   string
	LogID     string
	Status    string
}

// AlertCounts holds read/unread totals for the summary surface.
type AlertCounts struct {
	Read   int64
	Unread int64
}
