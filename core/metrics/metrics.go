package metrics

import (
	"time"
)

// SessionEvent represents one scheduling outcome to be recorded.
type SessionEvent struct {
	SessionID string
	ClientID  string
	RBTID     string
	Outcome   string
	Reason    string
	Score     float64
	Start     time.Time
	End       time.Time
	Latency   time.Duration
	Time      time.Time
}

// EventSink records scheduling outcomes for observability purposes.
type EventSink interface {
	RecordSession(ev SessionEvent) error
}

// DisruptionEvent captures a cancellation, reschedule or no-show.
type DisruptionEvent struct {
	SessionID string
	ClientID  string
	RBTID     string
	EventType string
	Reason    string
	Time      time.Time
}

// DisruptionRecorder records schedule disruptions.
type DisruptionRecorder interface {
	RecordDisruption(ev DisruptionEvent) error
}

// OpportunityEvent captures the outcome of an alternative-slot search.
type OpportunityEvent struct {
	ClientID   string
	Candidates int
	BestScore  float64
	Elapsed    time.Duration
	Time       time.Time
}

// OpportunityRecorder records opportunity searches.
type OpportunityRecorder interface {
	RecordOpportunity(ev OpportunityEvent) error
}

// ContinuityEvent is a snapshot of a client/RBT continuity score.
type ContinuityEvent struct {
	ClientID string
	RBTID    string
	Score    float64
	Time     time.Time
}

// ContinuityRecorder records continuity score snapshots.
type ContinuityRecorder interface {
	RecordContinuity(ev ContinuityEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordSession(SessionEvent) error       { return nil }
func (NopSink) RecordDisruption(DisruptionEvent) error { return nil }
func (NopSink) RecordOpportunity(OpportunityEvent) error {
	return nil
}
func (NopSink) RecordContinuity(ContinuityEvent) error { return nil }
