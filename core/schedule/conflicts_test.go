package schedule

import (
	"testing"
	"time"

	"github.com/novabehavior/abacore/core/model"
)

func existingSession(clientID, rbtID, location string, start time.Time) model.Session {
	return model.Session{
		ID:       "existing",
		ClientID: clientID,
		RBTID:    rbtID,
		Location: location,
		Start:    start,
		End:      start.Add(3 * time.Hour),
		Status:   model.StatusScheduled,
	}
}

func TestDetectConflictsClassification(t *testing.T) {
	start := monday.Add(9 * time.Hour)
	slot := Slot{ClientID: "client-1", RBTID: "rbt-1", Start: start, End: start.Add(3 * time.Hour), Location: "clinic-a"}

	cases := []struct {
		name     string
		existing model.Session
		want     ConflictType
		severity Severity
	}{
		{"same pair", existingSession("client-1", "rbt-1", "", start), ConflictTimeOverlap, SeverityError},
		{"same rbt", existingSession("client-2", "rbt-1", "", start), ConflictRBTDoubleBooking, SeverityError},
		{"same client", existingSession("client-1", "rbt-2", "", start), ConflictClientDoubleBooking, SeverityError},
		{"same location", existingSession("client-2", "rbt-2", "clinic-a", start), ConflictLocation, SeverityWarning},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DetectConflicts(slot, []model.Session{tc.existing})
			if len(got) != 1 {
				t.Fatalf("expected one conflict, got %v", got)
			}
			if got[0].Type != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got[0].Type)
			}
			if got[0].Severity != tc.severity {
				t.Fatalf("expected severity %s, got %s", tc.severity, got[0].Severity)
			}
		})
	}
}

func TestDetectConflictsSkips(t *testing.T) {
	start := monday.Add(9 * time.Hour)
	slot := Slot{ClientID: "client-1", RBTID: "rbt-1", Start: start, End: start.Add(3 * time.Hour)}

	cancelled := existingSession("client-1", "rbt-1", "", start)
	cancelled.Status = model.StatusCancelled
	adjacent := existingSession("client-1", "rbt-1", "", start.Add(3*time.Hour))
	unrelated := existingSession("client-2", "rbt-2", "clinic-b", start)

	got := DetectConflicts(slot, []model.Session{cancelled, adjacent, unrelated})
	if len(got) != 0 {
		t.Fatalf("expected no conflicts, got %v", got)
	}
}

func TestDetectConflictsReportsAll(t *testing.T) {
	start := monday.Add(9 * time.Hour)
	slot := Slot{ClientID: "client-1", RBTID: "rbt-1", Start: start, End: start.Add(3 * time.Hour), Location: "clinic-a"}
	existing := []model.Session{
		existingSession("client-1", "rbt-2", "", start),
		existingSession("client-2", "rbt-1", "", start.Add(time.Hour)),
		existingSession("client-3", "rbt-3", "clinic-a", start.Add(2*time.Hour)),
	}
	got := DetectConflicts(slot, existing)
	if len(got) != 3 {
		t.Fatalf("expected every collision reported, got %v", got)
	}
	blocking, warnings := SplitConflicts(got)
	if len(blocking) != 2 || len(warnings) != 1 {
		t.Fatalf("expected 2 blockers and 1 warning, got %d and %d", len(blocking), len(warnings))
	}
}
