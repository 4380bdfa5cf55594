package recovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/novabehavior/abacore/core/metrics"
	"github.com/novabehavior/abacore/core/model"
	"github.com/novabehavior/abacore/core/schedule"
	"github.com/novabehavior/abacore/core/store"
)

// Recency bonuses added on top of the continuity score when ranking
// alternative placements. A client who has not seen the caregiver for a
// while, or never, benefits most from the freed slot.
const (
	bonusLongGap   = 20
	bonusShortGap  = 10
	bonusNoHistory = 15

	longGapDays  = 7
	shortGapDays = 3

	impactPerDay  = 10
	maxReschedule = 5
)

// AlternativeOpportunity proposes filling a freed slot with another client
// of the same caregiver. Opportunities are computed on demand and never
// persisted.
type AlternativeOpportunity struct {
	ClientID   string                `json:"client_id"`
	RBTID      string                `json:"rbt_id"`
	Start      time.Time             `json:"start"`
	End        time.Time             `json:"end"`
	Score      float64               `json:"score"`
	Continuity model.ContinuityScore `json:"continuity"`
	Rationale  string                `json:"rationale"`
}

// RescheduleOpportunity proposes moving one of the caregiver's upcoming
// sessions into a freed slot. Lower impact means less disruption.
type RescheduleOpportunity struct {
	SessionID string    `json:"session_id"`
	ClientID  string    `json:"client_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Impact    float64   `json:"impact"`
}

// FindAlternativeOpportunities searches the cancelled session's slot for
// other clients of the same caregiver who are free at that time. Candidates
// are scored by continuity plus a recency bonus and returned ranked, best
// first, capped at max (the configured default when max is zero). Candidate
// reads run with bounded parallelism; the final ranking is deterministic.
// A caregiver the directory marks inactive yields no opportunities.
func (e *Engine) FindAlternativeOpportunities(ctx context.Context, cancelled model.Session, max int) ([]AlternativeOpportunity, error) {
	if max <= 0 {
		max = e.cfg.MaxAlternatives
	}
	started := time.Now()

	// A caregiver the directory has deactivated frees no usable slot.
	dirRec, err := e.store.FindRBT(ctx, cancelled.RBTID)
	switch {
	case err == nil && !dirRec.IsActive:
		return nil, nil
	case err != nil && !errors.Is(err, store.ErrRBTNotFound):
		return nil, fmt.Errorf("look up rbt %s: %w", cancelled.RBTID, err)
	}

	teams, err := e.store.FindTeamsByRBT(ctx, cancelled.RBTID)
	if err != nil {
		return nil, fmt.Errorf("load teams for %s: %w", cancelled.RBTID, err)
	}
	seen := map[string]bool{cancelled.ClientID: true}
	var clients []string
	for _, tm := range teams {
		if !seen[tm.ClientID] {
			seen[tm.ClientID] = true
			clients = append(clients, tm.ClientID)
		}
	}

	now := e.clk.Now()
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		out []AlternativeOpportunity
	)
	sem := make(chan struct{}, e.cfg.SearchParallelism)
	for _, clientID := range clients {
		wg.Add(1)
		go func(clientID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			opp, ok := e.evaluateCandidate(ctx, now, cancelled, clientID)
			if !ok {
				return
			}
			mu.Lock()
			out = append(out, opp)
			mu.Unlock()
		}(clientID)
	}
	wg.Wait()

	sortOpportunities(out)
	if len(out) > max {
		out = out[:max]
	}

	opportunitySearch.Observe(time.Since(started).Seconds())
	opportunitiesFound.WithLabelValues("alternative").Add(float64(len(out)))
	if rec, ok := e.sink.(metrics.OpportunityRecorder); ok {
		best := 0.0
		if len(out) > 0 {
			best = out[0].Score
		}
		if err := rec.RecordOpportunity(metrics.OpportunityEvent{
			ClientID:   cancelled.ClientID,
			Candidates: len(out),
			BestScore:  best,
			Elapsed:    time.Since(started),
			Time:       now,
		}); err != nil {
			e.log.Warnf("record opportunity event: %v", err)
		}
	}
	return out, nil
}

// evaluateCandidate checks one client against the freed slot. Store failures
// are logged and the candidate skipped: the search is advisory and partial
// results beat none.
func (e *Engine) evaluateCandidate(ctx context.Context, now time.Time, cancelled model.Session, clientID string) (AlternativeOpportunity, bool) {
	busy, err := e.store.CheckConflicts(ctx, clientID, "", cancelled.Start, cancelled.End)
	if err != nil {
		e.log.Warnf("check conflicts for %s: %v", clientID, err)
		return AlternativeOpportunity{}, false
	}
	if len(busy) > 0 {
		return AlternativeOpportunity{}, false
	}
	history, err := e.store.FindByClient(ctx, clientID)
	if err != nil {
		e.log.Warnf("load history for %s: %v", clientID, err)
		return AlternativeOpportunity{}, false
	}
	sc := schedule.ScoreHistory(now, cancelled.RBTID, clientID, history)
	bonus, rationale := recencyBonus(now, sc)
	return AlternativeOpportunity{
		ClientID:   clientID,
		RBTID:      cancelled.RBTID,
		Start:      cancelled.Start,
		End:        cancelled.End,
		Score:      sc.Score + bonus,
		Continuity: sc,
		Rationale:  rationale,
	}, true
}

// recencyBonus rewards candidates who have waited longest for the caregiver.
func recencyBonus(now time.Time, sc model.ContinuityScore) (float64, string) {
	if sc.LastSessionDate == nil {
		return bonusNoHistory, "no prior sessions with this caregiver"
	}
	gapDays := int(now.Sub(*sc.LastSessionDate).Hours() / 24)
	switch {
	case gapDays > longGapDays:
		return bonusLongGap, fmt.Sprintf("last session with this caregiver was %d days ago", gapDays)
	case gapDays > shortGapDays:
		return bonusShortGap, fmt.Sprintf("last session with this caregiver was %d days ago", gapDays)
	}
	return 0, fmt.Sprintf("seen recently, %d days ago", gapDays)
}

// sortOpportunities ranks by score descending with client id as tie-break,
// so concurrent evaluation order never changes the result.
func sortOpportunities(opps []AlternativeOpportunity) {
	sort.Slice(opps, func(i, j int) bool {
		if opps[i].Score != opps[j].Score {
			return opps[i].Score > opps[j].Score
		}
		return opps[i].ClientID < opps[j].ClientID
	})
}

// FindRescheduleOpportunities scans the caregiver's still-scheduled sessions
// in the searchDays after the freed slot (the configured default when
// searchDays is zero). Moving a nearby session into the slot disrupts least,
// so impact grows with the distance in days and results rank ascending.
func (e *Engine) FindRescheduleOpportunities(ctx context.Context, cancelled model.Session, searchDays int) ([]RescheduleOpportunity, error) {
	if searchDays <= 0 {
		searchDays = e.cfg.RescheduleSearchDays
	}
	sessions, err := e.store.FindByRBT(ctx, cancelled.RBTID)
	if err != nil {
		return nil, fmt.Errorf("load sessions for %s: %w", cancelled.RBTID, err)
	}

	windowEnd := cancelled.Start.AddDate(0, 0, searchDays)
	var out []RescheduleOpportunity
	for _, s := range sessions {
		if s.Status != model.StatusScheduled || s.ID == cancelled.ID {
			continue
		}
		if !s.Start.After(cancelled.Start) || s.Start.After(windowEnd) {
			continue
		}
		days := int(s.Start.Sub(cancelled.Start).Hours() / 24)
		out = append(out, RescheduleOpportunity{
			SessionID: s.ID,
			ClientID:  s.ClientID,
			Start:     s.Start,
			End:       s.End,
			Impact:    float64(days * impactPerDay),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Impact != out[j].Impact {
			return out[i].Impact < out[j].Impact
		}
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].SessionID < out[j].SessionID
	})
	if len(out) > maxReschedule {
		out = out[:maxReschedule]
	}
	opportunitiesFound.WithLabelValues("reschedule").Add(float64(len(out)))
	return out, nil
}
