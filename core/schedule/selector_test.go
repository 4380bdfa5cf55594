package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/novabehavior/abacore/core/auditlog"
	"github.com/novabehavior/abacore/core/clock"
	"github.com/novabehavior/abacore/core/model"
	"github.com/novabehavior/abacore/core/store"
)

func pastCompleted(clientID, rbtID string, daysAgo int) model.Session {
	start := nowRef.AddDate(0, 0, -daysAgo)
	return model.Session{
		ClientID: clientID,
		RBTID:    rbtID,
		Start:    start,
		End:      start.Add(3 * time.Hour),
		Status:   model.StatusCompleted,
	}
}

// seedScheduleStore builds a store with two care teams and enough history to
// separate the candidates by continuity:
//
//	team-1 serves client-1 with rbt-1 (primary, no history), rbt-2 (ten
//	recent sessions, score 80) and rbt-3 (two old sessions, score 18).
//	team-2 serves client-2 with rbt-1 and rbt-9 (primary).
func seedScheduleStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore(auditlog.NewMemoryStore(), clock.NewFixed(nowRef))
	err := st.RunInTransaction(context.Background(), func(tx store.Tx) error {
		teams := []model.Team{
			{ID: "team-1", ClientID: "client-1", RBTIDs: []string{"rbt-1", "rbt-2", "rbt-3"}, PrimaryRBTID: "rbt-1", EffectiveDate: monday.AddDate(0, 0, -60), IsActive: true},
			{ID: "team-2", ClientID: "client-2", RBTIDs: []string{"rbt-1", "rbt-9"}, PrimaryRBTID: "rbt-9", EffectiveDate: monday.AddDate(0, 0, -60), IsActive: true},
		}
		for _, tm := range teams {
			if _, err := tx.UpsertTeam(tm); err != nil {
				return err
			}
		}
		for day := 1; day <= 10; day++ {
			if _, err := tx.CreateSession(pastCompleted("client-1", "rbt-2", day)); err != nil {
				return err
			}
		}
		for _, day := range []int{20, 25} {
			if _, err := tx.CreateSession(pastCompleted("client-1", "rbt-3", day)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return st
}

// blockRBT books the caregiver for the window so selection must skip them.
func blockRBT(t *testing.T, st *store.MemoryStore, rbtID string, start, end time.Time) model.Session {
	t.Helper()
	var created model.Session
	err := st.RunInTransaction(context.Background(), func(tx store.Tx) error {
		var err error
		created, err = tx.CreateSession(model.Session{
			ClientID: "client-other",
			RBTID:    rbtID,
			Start:    start,
			End:      end,
			Status:   model.StatusConfirmed,
		})
		return err
	})
	if err != nil {
		t.Fatalf("block %s: %v", rbtID, err)
	}
	return created
}

// markRBT writes the caregiver's directory record with the given status.
func markRBT(t *testing.T, st *store.MemoryStore, rbtID string, active bool) {
	t.Helper()
	err := st.RunInTransaction(context.Background(), func(tx store.Tx) error {
		_, err := tx.UpsertRBT(model.RBT{ID: rbtID, IsActive: active})
		return err
	})
	if err != nil {
		t.Fatalf("mark %s: %v", rbtID, err)
	}
}

// The requested slot used throughout: Monday 09:00-12:00, one hour ahead of
// the fixed clock.
var (
	slotStart = monday.Add(9 * time.Hour)
	slotEnd   = monday.Add(12 * time.Hour)
)

func TestSelectPrimaryWins(t *testing.T) {
	st := seedScheduleStore(t)
	sel, err := selectRBT(context.Background(), st, testConfig(), nowRef, "client-1", slotStart, slotEnd, "")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.RBTID != "rbt-1" {
		t.Fatalf("expected primary rbt-1, got %s", sel.RBTID)
	}
	if sel.Reason != ReasonPrimary {
		t.Fatalf("expected reason %q, got %q", ReasonPrimary, sel.Reason)
	}
	if len(sel.Candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(sel.Candidates))
	}
	// The ranking itself is by continuity; primacy overrides it.
	if sel.Candidates[0].RBTID != "rbt-2" || sel.Candidates[0].Score.Score != 80 {
		t.Fatalf("expected rbt-2 ranked first with score 80, got %s score %v", sel.Candidates[0].RBTID, sel.Candidates[0].Score.Score)
	}
}

func TestSelectContinuityWhenPrimaryBlocked(t *testing.T) {
	st := seedScheduleStore(t)
	blockRBT(t, st, "rbt-1", slotStart, slotEnd)
	sel, err := selectRBT(context.Background(), st, testConfig(), nowRef, "client-1", slotStart, slotEnd, "")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.RBTID != "rbt-2" {
		t.Fatalf("expected rbt-2 by continuity, got %s", sel.RBTID)
	}
	if sel.Reason != ReasonContinuity {
		t.Fatalf("expected reason %q, got %q", ReasonContinuity, sel.Reason)
	}
	if sel.Score.Score != 80 {
		t.Fatalf("expected score 80, got %v", sel.Score.Score)
	}
	for _, c := range sel.Candidates {
		if c.RBTID == "rbt-1" {
			if c.Eligible || len(c.Conflicts) == 0 {
				t.Fatalf("blocked primary should be ineligible with conflicts, got %+v", c)
			}
		}
	}
}

func TestSelectSkipsDirectoryInactive(t *testing.T) {
	st := seedScheduleStore(t)
	markRBT(t, st, "rbt-1", false)
	markRBT(t, st, "rbt-2", true)
	sel, err := selectRBT(context.Background(), st, testConfig(), nowRef, "client-1", slotStart, slotEnd, "")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	// The inactive primary loses its precedence; rbt-3 has no directory
	// record and still counts as active.
	if sel.RBTID != "rbt-2" {
		t.Fatalf("expected rbt-2 once the primary is inactive, got %s", sel.RBTID)
	}
	if sel.Reason != ReasonContinuity {
		t.Fatalf("expected reason %q, got %q", ReasonContinuity, sel.Reason)
	}
	for _, c := range sel.Candidates {
		if c.RBTID != "rbt-1" {
			continue
		}
		if c.Eligible {
			t.Fatalf("inactive rbt-1 should be ineligible")
		}
		if len(c.Violations) != 1 || c.Violations[0].Code != ViolationRBTInactive {
			t.Fatalf("expected %s violation, got %+v", ViolationRBTInactive, c.Violations)
		}
	}
}

func TestSelectOnlyAvailable(t *testing.T) {
	st := seedScheduleStore(t)
	blockRBT(t, st, "rbt-1", slotStart, slotEnd)
	blockRBT(t, st, "rbt-2", slotStart, slotEnd)
	sel, err := selectRBT(context.Background(), st, testConfig(), nowRef, "client-1", slotStart, slotEnd, "")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.RBTID != "rbt-3" {
		t.Fatalf("expected rbt-3, got %s", sel.RBTID)
	}
	if sel.Reason != ReasonOnlyAvailable {
		t.Fatalf("expected reason %q, got %q", ReasonOnlyAvailable, sel.Reason)
	}
}

func TestSelectNoCandidates(t *testing.T) {
	st := seedScheduleStore(t)
	for _, id := range []string{"rbt-1", "rbt-2", "rbt-3"} {
		blockRBT(t, st, id, slotStart, slotEnd)
	}
	sel, err := selectRBT(context.Background(), st, testConfig(), nowRef, "client-1", slotStart, slotEnd, "")
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
	if len(sel.Candidates) != 3 {
		t.Fatalf("expected candidate ranking despite failure, got %d", len(sel.Candidates))
	}
	for _, c := range sel.Candidates {
		if c.Eligible {
			t.Fatalf("candidate %s should be blocked", c.RBTID)
		}
	}
}

func TestSelectTeamNotFound(t *testing.T) {
	st := seedScheduleStore(t)
	_, err := selectRBT(context.Background(), st, testConfig(), nowRef, "client-404", slotStart, slotEnd, "")
	if !errors.Is(err, store.ErrTeamNotFound) {
		t.Fatalf("expected ErrTeamNotFound, got %v", err)
	}
}

func TestSelectTieKeepsTeamOrder(t *testing.T) {
	st := seedScheduleStore(t)
	err := st.RunInTransaction(context.Background(), func(tx store.Tx) error {
		_, err := tx.UpsertTeam(model.Team{
			ID:            "team-3",
			ClientID:      "client-3",
			RBTIDs:        []string{"rbt-8", "rbt-7"},
			EffectiveDate: monday.AddDate(0, 0, -60),
			IsActive:      true,
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed team: %v", err)
	}
	sel, err := selectRBT(context.Background(), st, testConfig(), nowRef, "client-3", slotStart, slotEnd, "")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	// Both score zero; the first team member wins, not the lower id.
	if sel.RBTID != "rbt-8" {
		t.Fatalf("expected rbt-8 on tie, got %s", sel.RBTID)
	}
}

func TestSelectOptimalRBTPrefersHistory(t *testing.T) {
	history := []model.Session{
		pastCompleted("client-1", "rbt-1", 1),
		pastCompleted("client-1", "rbt-1", 8),
		pastCompleted("client-1", "rbt-1", 15),
		pastCompleted("client-1", "rbt-2", 40),
	}
	sel, err := SelectOptimalRBT(nowRef, "client-1", []string{"rbt-1", "rbt-2"}, history, nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.RBTID != "rbt-1" {
		t.Fatalf("expected rbt-1 by continuity, got %s", sel.RBTID)
	}
	if sel.Reason != ReasonContinuity {
		t.Fatalf("expected reason %q, got %q", ReasonContinuity, sel.Reason)
	}
	// 6 volume + 15 recent + 30 recency.
	if sel.Score.Score != 51 {
		t.Fatalf("expected score 51, got %v", sel.Score.Score)
	}
	if len(sel.Candidates) != 2 || sel.Candidates[1].RBTID != "rbt-2" {
		t.Fatalf("expected rbt-2 ranked as the alternative, got %+v", sel.Candidates)
	}
	if sel.Candidates[1].Score.Score != 2 {
		t.Fatalf("expected alternative score 2, got %v", sel.Candidates[1].Score.Score)
	}
}

func TestSelectOptimalRBTPrimacyOverridesScore(t *testing.T) {
	history := []model.Session{
		pastCompleted("client-1", "rbt-1", 1),
		pastCompleted("client-1", "rbt-1", 2),
	}
	team := &model.Team{ClientID: "client-1", RBTIDs: []string{"rbt-1", "rbt-2"}, PrimaryRBTID: "rbt-2"}
	sel, err := SelectOptimalRBT(nowRef, "client-1", []string{"rbt-1", "rbt-2"}, history, team)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.RBTID != "rbt-2" || sel.Reason != ReasonPrimary {
		t.Fatalf("expected primary rbt-2, got %s (%s)", sel.RBTID, sel.Reason)
	}
	// The ranking itself still follows continuity.
	if sel.Candidates[0].RBTID != "rbt-1" {
		t.Fatalf("expected rbt-1 ranked first, got %s", sel.Candidates[0].RBTID)
	}
}

func TestSelectOptimalRBTSingleCandidate(t *testing.T) {
	sel, err := SelectOptimalRBT(nowRef, "client-1", []string{"rbt-5"}, nil, nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.RBTID != "rbt-5" || sel.Reason != ReasonOnlyAvailable {
		t.Fatalf("expected lone rbt-5, got %s (%s)", sel.RBTID, sel.Reason)
	}
}

func TestSelectOptimalRBTEmptyCandidates(t *testing.T) {
	if _, err := SelectOptimalRBT(nowRef, "client-1", nil, nil, nil); !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

func TestSelectOptimalRBTTieKeepsCandidateOrder(t *testing.T) {
	sel, err := SelectOptimalRBT(nowRef, "client-1", []string{"rbt-9", "rbt-7"}, nil, nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.RBTID != "rbt-9" {
		t.Fatalf("expected first candidate on tie, got %s", sel.RBTID)
	}
}

func TestSelectSkipsRBTAtDailyLimit(t *testing.T) {
	st := seedScheduleStore(t)
	// Two same-day bookings put rbt-1 at the daily cap.
	blockRBT(t, st, "rbt-1", monday.Add(13*time.Hour), monday.Add(14*time.Hour))
	blockRBT(t, st, "rbt-1", monday.Add(15*time.Hour), monday.Add(16*time.Hour))
	sel, err := selectRBT(context.Background(), st, testConfig(), nowRef, "client-1", slotStart, slotEnd, "")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.RBTID != "rbt-2" {
		t.Fatalf("expected rbt-2 when primary is at the cap, got %s", sel.RBTID)
	}
	for _, c := range sel.Candidates {
		if c.RBTID == "rbt-1" {
			if c.Eligible {
				t.Fatal("rbt-1 should be ineligible at the daily cap")
			}
			found := false
			for _, v := range c.Violations {
				if v.Code == ViolationDailyLimit {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %s violation, got %v", ViolationDailyLimit, c.Violations)
			}
		}
	}
}
