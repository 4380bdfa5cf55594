package model

import (
	"fmt"
	"time"
)

// SessionStatus describes the lifecycle state of a therapy session.
type SessionStatus string

const (
	StatusScheduled SessionStatus = "scheduled"
	StatusConfirmed SessionStatus = "confirmed"
	StatusCompleted SessionStatus = "completed"
	StatusCancelled SessionStatus = "cancelled"
	StatusNoShow    SessionStatus = "no_show"
)

// transitions lists the legal status moves. Cancellation is terminal: there
// is no path from cancelled back to an active status.
var transitions = map[SessionStatus][]SessionStatus{
	StatusScheduled: {StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusNoShow:    {},
}

// Valid reports whether the status is one of the known lifecycle states.
func (s SessionStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsActive reports whether a session in this status occupies its time slot.
// Only active sessions participate in conflict detection.
func (s SessionStatus) IsActive() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

// IsTerminal reports whether the status admits no further transitions.
func (s SessionStatus) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether moving from s to next is a legal status change.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Session represents a single therapy appointment between a client and an RBT.
// Sessions have a fixed duration and are mutated only through validated
// transitions owned by the scheduler.
type Session struct {
	ID                 string        `json:"id"`
	ClientID           string        `json:"client_id"`
	RBTID              string        `json:"rbt_id"`
	Start              time.Time     `json:"start"`
	End                time.Time     `json:"end"`
	Status             SessionStatus `json:"status"`
	Location           string        `json:"location,omitempty"`
	CancellationReason string        `json:"cancellation_reason,omitempty"`
	CreatedBy          string        `json:"created_by,omitempty"`
	UpdatedBy          string        `json:"updated_by,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Validate checks that the session carries the minimum coherent data.
func (s Session) Validate() error {
	if s.ClientID == "" {
		return fmt.Errorf("session client id is required")
	}
	if s.RBTID == "" {
		return fmt.Errorf("session rbt id is required")
	}
	if !s.End.After(s.Start) {
		return fmt.Errorf("session end must be after start")
	}
	if !s.Status.Valid() {
		return fmt.Errorf("unknown session status %q", s.Status)
	}
	return nil
}

// IsActive reports whether the session occupies its slot.
func (s Session) IsActive() bool {
	return s.Status.IsActive()
}

// Overlaps reports whether the session's [Start,End) interval intersects
// [start,end). Two intervals overlap iff s1 < e2 and s2 < e1.
func (s Session) Overlaps(start, end time.Time) bool {
	return s.Start.Before(end) && start.Before(s.End)
}

// SameDay reports whether the session starts on the same calendar day as t.
func (s Session) SameDay(t time.Time) bool {
	y1, m1, d1 := s.Start.Date()
	y2, m2, d2 := t.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Snapshot returns the session's audit-relevant fields as a map, used as the
// old/new value payload of schedule events.
func (s Session) Snapshot() map[string]any {
	return map[string]any{
		"client_id":           s.ClientID,
		"rbt_id":              s.RBTID,
		"start":               s.Start.Format(time.RFC3339),
		"end":                 s.End.Format(time.RFC3339),
		"status":              string(s.Status),
		"location":            s.Location,
		"cancellation_reason": s.CancellationReason,
	}
}
