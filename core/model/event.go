package model

import "time"

// EventType identifies the kind of schedule change recorded in the audit log.
type EventType string

const (
	EventSessionCreated     EventType = "created"
	EventSessionUpdated     EventType = "updated"
	EventSessionConfirmed   EventType = "confirmed"
	EventSessionCompleted   EventType = "completed"
	EventSessionCancelled   EventType = "cancelled"
	EventSessionRescheduled EventType = "rescheduled"
	EventSessionNoShow      EventType = "no_show"
	EventRBTUnavailable     EventType = "rbt_unavailable"
)

// IsDisruption reports whether the event type counts as a schedule disruption
// for analytics purposes.
func (t EventType) IsDisruption() bool {
	switch t {
	case EventSessionCancelled, EventSessionRescheduled, EventSessionNoShow, EventRBTUnavailable:
		return true
	default:
		return false
	}
}

// ScheduleEvent is an immutable audit record of one schedule change. Events
// are append-only and are the sole source for disruption analytics.
type ScheduleEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id,omitempty"`
	ClientID  string         `json:"client_id,omitempty"`
	RBTID     string         `json:"rbt_id,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	OldValues map[string]any `json:"old_values,omitempty"`
	NewValues map[string]any `json:"new_values,omitempty"`
	Actor     string         `json:"actor,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
