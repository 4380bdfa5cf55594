package schedule

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/novabehavior/abacore/core/clock"
	"github.com/novabehavior/abacore/core/metrics"
	"github.com/novabehavior/abacore/core/model"
	"github.com/novabehavior/abacore/core/store"
)

// Continuity scoring weights. The three components sum to at most 100:
// up to 40 points for total shared history, up to 30 for sessions in the
// last thirty days, and up to 30 for how recently the pair last met.
const (
	maxVolumePoints    = 40.0
	maxRecentPoints    = 30.0
	maxRecencyPoints   = 30.0
	volumePointsEach   = 2.0
	recentPointsEach   = 5.0
	recentWindowDays   = 30
	recencyGraceDays   = 7
	recencyDecayPerDay = 2.0
)

// ScoreHistory computes the continuity score for a client/RBT pair from the
// pair's session history at the given reference time. Completed and confirmed
// sessions starting at or before the reference build continuity; cancelled and
// no-show sessions never count, and later sessions are invisible so a past
// reference reproduces the score of that day. Sessions for other pairs are
// ignored, so callers may pass an unfiltered history.
func ScoreHistory(now time.Time, rbtID, clientID string, history []model.Session) model.ContinuityScore {
	sc := model.ContinuityScore{RBTID: rbtID, ClientID: clientID}
	cutoff := now.AddDate(0, 0, -recentWindowDays)
	var last time.Time
	for _, s := range history {
		if s.RBTID != rbtID || s.ClientID != clientID {
			continue
		}
		if s.Status != model.StatusCompleted && s.Status != model.StatusConfirmed {
			continue
		}
		if s.Start.After(now) {
			continue
		}
		sc.TotalSessions++
		if s.Start.After(cutoff) {
			sc.RecentSessions++
		}
		if s.Start.After(last) {
			last = s.Start
		}
	}
	volume := math.Min(float64(sc.TotalSessions)*volumePointsEach, maxVolumePoints)
	recent := math.Min(float64(sc.RecentSessions)*recentPointsEach, maxRecentPoints)
	recency := 0.0
	if !last.IsZero() {
		t := last
		sc.LastSessionDate = &t
		days := int(now.Sub(last).Hours() / 24)
		if days <= recencyGraceDays {
			recency = maxRecencyPoints
		} else {
			recency = maxRecencyPoints - recencyDecayPerDay*float64(days-recencyGraceDays)
			if recency < 0 {
				recency = 0
			}
		}
	}
	sc.Score = math.Min(volume+recent+recency, 100)
	return sc
}

// ContinuityScorer computes continuity scores from committed session history.
type ContinuityScorer struct {
	sessions store.SessionReader
	clk      clock.Clock
	sink     metrics.EventSink
}

// NewContinuityScorer creates a scorer reading history from the given reader.
func NewContinuityScorer(sessions store.SessionReader, clk clock.Clock) (*ContinuityScorer, error) {
	if sessions == nil {
		return nil, fmt.Errorf("schedule: nil session reader provided to NewContinuityScorer")
	}
	if clk == nil {
		clk = clock.System()
	}
	return &ContinuityScorer{sessions: sessions, clk: clk}, nil
}

// SetSink configures an event sink that receives a snapshot of every score
// computed through Score.
func (cs *ContinuityScorer) SetSink(sink metrics.EventSink) { cs.sink = sink }

// Score computes the continuity score for one client/RBT pair.
func (cs *ContinuityScorer) Score(ctx context.Context, rbtID, clientID string) (model.ContinuityScore, error) {
	history, err := cs.sessions.FindByClient(ctx, clientID)
	if err != nil {
		return model.ContinuityScore{}, fmt.Errorf("load client history: %w", err)
	}
	sc := ScoreHistory(cs.clk.Now(), rbtID, clientID, history)
	if rec, ok := cs.sink.(metrics.ContinuityRecorder); ok {
		_ = rec.RecordContinuity(metrics.ContinuityEvent{
			ClientID: clientID,
			RBTID:    rbtID,
			Score:    sc.Score,
			Time:     cs.clk.Now(),
		})
	}
	return sc, nil
}

// ScoreTeam scores every listed RBT against the client and returns the
// scores ordered best first. Ties break on RBT id for stable output.
func (cs *ContinuityScorer) ScoreTeam(ctx context.Context, clientID string, rbtIDs []string) ([]model.ContinuityScore, error) {
	history, err := cs.sessions.FindByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load client history: %w", err)
	}
	now := cs.clk.Now()
	out := make([]model.ContinuityScore, 0, len(rbtIDs))
	for _, id := range rbtIDs {
		out = append(out, ScoreHistory(now, id, clientID, history))
	}
	SortScores(out)
	return out, nil
}

// SortScores orders scores best first, breaking ties on RBT id.
func SortScores(scores []model.ContinuityScore) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score == scores[j].Score {
			return scores[i].RBTID < scores[j].RBTID
		}
		return scores[i].Score > scores[j].Score
	})
}
