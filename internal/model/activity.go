package model

// Activity levels. The audit trail only distinguishes success from failure.
const (
	ActivityLevelInfo  = "info"
	ActivityLevelError = "error"
)

// ActivityLog is one append-only audit-trail entry. Entries are written by
// every mutating or failing operation and are never updated or deleted by
// the application itself.
type ActivityLog struct {
	ID         string
	Timestamp  string
	Level      string
	EventType  string
	Source     string
	Message    string
	Stack      string
	Tags       string
	AppName    string
	AppVersion string
}
