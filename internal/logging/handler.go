// Package logging provides a custom slog handler that integrates with the
// activity audit trail. It forwards logs at WARN level and above to the
// database-backed trail for forensic review.
package logging

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/shieldeye/shieldeye-go/internal/model"
	"github.com/shieldeye/shieldeye-go/internal/store"
	"github.com/shieldeye/shieldeye-go/internal/version"
)

// ActivityHandler is a slog.Handler that wraps another handler and also
// writes WARN and ERROR level logs to the activity trail.
type ActivityHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level // Minimum level to forward to the trail (default: WARN)
}

// NewActivityHandler creates a new ActivityHandler that wraps the given handler.
func NewActivityHandler(inner slog.Handler, db *sql.DB) *ActivityHandler {
	return &ActivityHandler{
		inner:   inner,
		queries: store.New(db),
		level:   slog.LevelWarn,
	}
}

// NewActivityHandlerWithLevel creates a new ActivityHandler with a custom minimum level.
func NewActivityHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *ActivityHandler {
	return &ActivityHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *ActivityHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ActivityHandler) Handle(ctx context.Context, r slog.Record) error {
	// Always forward to the inner handler first
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeToTrail(r)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *ActivityHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ActivityHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
	}
}

// WithGroup implements slog.Handler.
func (h *ActivityHandler) WithGroup(name string) slog.Handler {
	return &ActivityHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
	}
}

// writeToTrail writes a log record to the activity trail. The write is
// best-effort: the trail never fails a logging call. A background context
// is used so the entry lands even when the record's context is cancelled.
func (h *ActivityHandler) writeToTrail(r slog.Record) {
	_ = h.queries.InsertActivity(context.Background(), model.ActivityLog{
		ID:         uuid.NewString(),
		Timestamp:  model.Now(),
		Level:      slogLevelToActivityLevel(r.Level),
		EventType:  extractAttr(r, "event_type", "runtime log"),
		Source:     extractAttr(r, "source", "logger"),
		Message:    r.Message,
		Stack:      extractAttr(r, "error", ""),
		Tags:       collectTags(r),
		AppName:    version.AppName,
		AppVersion: version.App(),
	})
}

// slogLevelToActivityLevel converts a slog.Level to a trail level. The
// trail only distinguishes failure from everything else.
func slogLevelToActivityLevel(level slog.Level) string {
	if level >= slog.LevelError {
		return model.ActivityLevelError
	}
	return model.ActivityLevelInfo
}

// extractAttr returns the named attribute's value, or fallback when absent.
func extractAttr(r slog.Record, key, fallback string) string {
	value := fallback
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			value = a.Value.String()
			return false
		}
		return true
	})
	return value
}

// collectTags joins the record's remaining attribute keys as a context label.
func collectTags(r slog.Record) string {
	var keys []string
	r.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "event_type", "source", "error":
			return true
		}
		keys = append(keys, a.Key+"="+a.Value.String())
		return true
	})
	return strings.Join(keys, " ")
}
