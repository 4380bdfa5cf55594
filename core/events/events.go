// Package events defines the payloads published on the internal event bus
// when the schedule changes. Subscribers include metrics bridges and the
// notification layer; delivery is best-effort and never blocks the scheduler.
package events

import (
	"time"

	"github.com/novabehavior/abacore/core/model"
	"github.com/novabehavior/abacore/internal/eventbus"
)

// Event is implemented by every bus payload.
type Event interface {
	Kind() string
}

// NewBus returns a bus carrying schedule events.
func NewBus() *eventbus.Bus[Event] { return eventbus.New[Event]() }

// SessionScheduled is published after a session commits.
type SessionScheduled struct {
	Session  model.Session
	Reason   string
	Warnings int
}

func (SessionScheduled) Kind() string { return "session_scheduled" }

// SessionTransitioned is published after a lifecycle status change commits.
type SessionTransitioned struct {
	Session model.Session
	From    model.SessionStatus
	To      model.SessionStatus
}

func (SessionTransitioned) Kind() string { return "session_transitioned" }

// SessionCancelled is published after a cancellation commits. Opportunities
// counts the alternative slots found for the freed window.
type SessionCancelled struct {
	Session       model.Session
	Reason        string
	Opportunities int
}

func (SessionCancelled) Kind() string { return "session_cancelled" }

// ConflictDetected is published when blocking conflicts reject a request.
type ConflictDetected struct {
	ClientID  string
	RBTID     string
	Conflicts int
}

func (ConflictDetected) Kind() string { return "conflict_detected" }

// OpportunityFound is published for each alternative placement surfaced
// after a cancellation frees a slot.
type OpportunityFound struct {
	ClientID string
	RBTID    string
	Start    time.Time
	Score    float64
}

func (OpportunityFound) Kind() string { return "opportunity_found" }

// BulkCompleted is published once per bulk scheduling run.
type BulkCompleted struct {
	Requested    int
	Scheduled    int
	Failed       int
	ValidateOnly bool
}

func (BulkCompleted) Kind() string { return "bulk_completed" }
