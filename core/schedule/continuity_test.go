package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/novabehavior/abacore/core/clock"
	"github.com/novabehavior/abacore/core/model"
)

func completedSession(rbtID string, daysAgo int) model.Session {
	start := nowRef.AddDate(0, 0, -daysAgo)
	return model.Session{
		ClientID: "client-1",
		RBTID:    rbtID,
		Start:    start,
		End:      start.Add(3 * time.Hour),
		Status:   model.StatusCompleted,
	}
}

func TestScoreHistoryEmpty(t *testing.T) {
	sc := ScoreHistory(nowRef, "rbt-1", "client-1", nil)
	if sc.Score != 0 {
		t.Fatalf("expected zero score, got %v", sc.Score)
	}
	if sc.LastSessionDate != nil {
		t.Fatalf("expected no last session date, got %v", sc.LastSessionDate)
	}
}

func TestScoreHistoryComponents(t *testing.T) {
	history := []model.Session{
		completedSession("rbt-1", 2),
		completedSession("rbt-1", 10),
		completedSession("rbt-1", 60),
	}
	sc := ScoreHistory(nowRef, "rbt-1", "client-1", history)
	if sc.TotalSessions != 3 {
		t.Fatalf("expected 3 total sessions, got %d", sc.TotalSessions)
	}
	if sc.RecentSessions != 2 {
		t.Fatalf("expected 2 recent sessions, got %d", sc.RecentSessions)
	}
	// 3x2 volume + 2x5 recent + 30 recency.
	if sc.Score != 46 {
		t.Fatalf("expected score 46, got %v", sc.Score)
	}
	if sc.LastSessionDate == nil || !sc.LastSessionDate.Equal(nowRef.AddDate(0, 0, -2)) {
		t.Fatalf("unexpected last session date %v", sc.LastSessionDate)
	}
}

func TestScoreHistoryVolumeCap(t *testing.T) {
	var history []model.Session
	for i := 0; i < 25; i++ {
		history = append(history, completedSession("rbt-1", 40+i))
	}
	sc := ScoreHistory(nowRef, "rbt-1", "client-1", history)
	// Volume caps at 40; the last session 40 days ago earns no recency.
	if sc.Score != 40 {
		t.Fatalf("expected score 40, got %v", sc.Score)
	}
}

func TestScoreHistoryRecencyDecay(t *testing.T) {
	sc := ScoreHistory(nowRef, "rbt-1", "client-1", []model.Session{completedSession("rbt-1", 17)})
	// 2 volume + 5 recent + (30 - 2*(17-7)) recency.
	if sc.Score != 17 {
		t.Fatalf("expected score 17, got %v", sc.Score)
	}
}

func TestScoreHistoryMax(t *testing.T) {
	var history []model.Session
	for i := 0; i < 20; i++ {
		history = append(history, completedSession("rbt-1", 1+i))
	}
	sc := ScoreHistory(nowRef, "rbt-1", "client-1", history)
	if sc.Score != 100 {
		t.Fatalf("expected perfect score, got %v", sc.Score)
	}
}

func TestScoreHistoryFilters(t *testing.T) {
	cancelled := completedSession("rbt-1", 2)
	cancelled.Status = model.StatusCancelled
	upcoming := completedSession("rbt-1", -3)
	upcoming.Status = model.StatusConfirmed
	other := completedSession("rbt-2", 2)

	sc := ScoreHistory(nowRef, "rbt-1", "client-1", []model.Session{cancelled, upcoming, other})
	if sc.Score != 0 {
		t.Fatalf("expected zero score, got %v", sc.Score)
	}

	// A confirmed session already delivered builds continuity like a
	// completed one: 2 volume + 5 recent + 30 recency.
	delivered := completedSession("rbt-1", 4)
	delivered.Status = model.StatusConfirmed
	sc = ScoreHistory(nowRef, "rbt-1", "client-1", []model.Session{delivered})
	if sc.TotalSessions != 1 || sc.Score != 37 {
		t.Fatalf("expected delivered confirmed session to score 37, got %d sessions score %v", sc.TotalSessions, sc.Score)
	}
}

func TestContinuityScorerReportsToSink(t *testing.T) {
	st := seedScheduleStore(t)
	cs, err := NewContinuityScorer(st, clock.NewFixed(nowRef))
	if err != nil {
		t.Fatalf("NewContinuityScorer: %v", err)
	}
	sink := &recordingSink{}
	cs.SetSink(sink)

	sc, err := cs.Score(context.Background(), "rbt-2", "client-1")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if sc.Score != 80 {
		t.Fatalf("expected score 80, got %v", sc.Score)
	}
	if len(sink.continuity) != 1 {
		t.Fatalf("expected 1 continuity snapshot, got %d", len(sink.continuity))
	}
	got := sink.continuity[0]
	if got.ClientID != "client-1" || got.RBTID != "rbt-2" || got.Score != 80 {
		t.Fatalf("unexpected snapshot %+v", got)
	}

	scores, err := cs.ScoreTeam(context.Background(), "client-1", []string{"rbt-1", "rbt-2", "rbt-3"})
	if err != nil {
		t.Fatalf("ScoreTeam: %v", err)
	}
	if len(scores) != 3 || scores[0].RBTID != "rbt-2" || scores[1].RBTID != "rbt-3" || scores[2].RBTID != "rbt-1" {
		t.Fatalf("unexpected team order %v", scores)
	}
}

func TestSortScores(t *testing.T) {
	scores := []model.ContinuityScore{
		{RBTID: "rbt-b", Score: 40},
		{RBTID: "rbt-c", Score: 80},
		{RBTID: "rbt-a", Score: 40},
	}
	SortScores(scores)
	if scores[0].RBTID != "rbt-c" || scores[1].RBTID != "rbt-a" || scores[2].RBTID != "rbt-b" {
		t.Fatalf("unexpected order %v", scores)
	}
}
