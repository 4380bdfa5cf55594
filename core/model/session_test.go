package model

import (
	"testing"
	"time"
)

func TestStatusTransitions(t *testing.T) {
	if !StatusScheduled.CanTransitionTo(StatusCancelled) {
		t.Fatalf("scheduled -> cancelled must be allowed")
	}
	if !StatusConfirmed.CanTransitionTo(StatusCancelled) {
		t.Fatalf("confirmed -> cancelled must be allowed")
	}
	if StatusCancelled.CanTransitionTo(StatusScheduled) {
		t.Fatalf("cancellation is terminal")
	}
	if StatusCompleted.CanTransitionTo(StatusCancelled) {
		t.Fatalf("completed sessions cannot be cancelled")
	}
}

func TestStatusIsActive(t *testing.T) {
	active := []SessionStatus{StatusScheduled, StatusConfirmed}
	for _, s := range active {
		if !s.IsActive() {
			t.Fatalf("%s should be active", s)
		}
	}
	inactive := []SessionStatus{StatusCompleted, StatusCancelled, StatusNoShow}
	for _, s := range inactive {
		if s.IsActive() {
			t.Fatalf("%s should not be active", s)
		}
	}
}

func TestSessionOverlaps(t *testing.T) {
	base := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	s := Session{Start: base, End: base.Add(3 * time.Hour)}

	if !s.Overlaps(base.Add(time.Hour), base.Add(4*time.Hour)) {
		t.Fatalf("expected overlap for intersecting interval")
	}
	// Half-open intervals: back to back sessions do not overlap.
	if s.Overlaps(base.Add(3*time.Hour), base.Add(6*time.Hour)) {
		t.Fatalf("adjacent interval must not overlap")
	}
	if s.Overlaps(base.Add(-3*time.Hour), base) {
		t.Fatalf("preceding adjacent interval must not overlap")
	}
}

func TestSessionValidate(t *testing.T) {
	base := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	s := Session{ClientID: "c1", RBTID: "r1", Start: base, End: base.Add(3 * time.Hour), Status: StatusScheduled}
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := s
	bad.End = bad.Start
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for empty interval")
	}
	bad = s
	bad.Status = "paused"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}
