package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/novabehavior/abacore/core/model"
	"github.com/novabehavior/abacore/core/store"
)

// ErrNoCandidates is returned when every member of the client's team is
// blocked for the requested window.
var ErrNoCandidates = errors.New("no eligible caregiver for the requested window")

// Selection reasons, ordered by precedence: the primary caregiver wins
// whenever available, a lone eligible caregiver is taken as-is, and
// otherwise the best continuity score decides.
const (
	ReasonPrimary       = "Primary caregiver for this client"
	ReasonOnlyAvailable = "Only available caregiver"
	ReasonContinuity    = "Previous experience with client"
)

// RankedCandidate is one team member's evaluation for a requested window.
type RankedCandidate struct {
	RBTID      string                `json:"rbt_id"`
	IsPrimary  bool                  `json:"is_primary"`
	Eligible   bool                  `json:"eligible"`
	Score      model.ContinuityScore `json:"score"`
	Conflicts  []Conflict            `json:"conflicts,omitempty"`
	Violations []Violation           `json:"violations,omitempty"`
}

// Selection is the outcome of caregiver selection: the chosen RBT, the rule
// that chose it and the full candidate ranking for explainability.
type Selection struct {
	RBTID      string                `json:"rbt_id"`
	Reason     string                `json:"reason"`
	Score      model.ContinuityScore `json:"score"`
	Candidates []RankedCandidate     `json:"candidates"`
}

// SelectOptimalRBT picks the best caregiver from an explicit candidate list
// using the client's session history alone. The caller vouches for
// availability; no store access happens here. Team primacy wins when a team
// is given and its primary is among the candidates, a lone candidate is
// taken as the only option, and otherwise the highest continuity score
// decides, ties keeping the candidate order. Candidates come back ranked by
// score descending so callers can offer the runners-up as alternatives.
func SelectOptimalRBT(now time.Time, clientID string, candidates []string, history []model.Session, team *model.Team) (Selection, error) {
	if len(candidates) == 0 {
		return Selection{}, fmt.Errorf("%w: empty candidate list for client %s", ErrNoCandidates, clientID)
	}
	ranked := make([]RankedCandidate, 0, len(candidates))
	for _, rbtID := range candidates {
		ranked = append(ranked, RankedCandidate{
			RBTID:     rbtID,
			IsPrimary: team != nil && rbtID == team.PrimaryRBTID,
			Eligible:  true,
			Score:     ScoreHistory(now, rbtID, clientID, history),
		})
	}
	sortCandidates(ranked)

	sel := Selection{Candidates: ranked}
	chosen, reason := pickFrom(ranked)
	sel.RBTID = chosen.RBTID
	sel.Reason = reason
	sel.Score = chosen.Score
	return sel, nil
}

// reader bundles the store access selection needs. Both the committed view
// and a transaction satisfy it.
type reader interface {
	store.SessionReader
	store.TeamReader
	store.RBTReader
}

// rbtInactive consults the caregiver directory for the id. An absent record
// counts as active: the directory is advisory and may lag team rosters.
func rbtInactive(ctx context.Context, r store.RBTReader, id string) (bool, error) {
	rec, err := r.FindRBT(ctx, id)
	if errors.Is(err, store.ErrRBTNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up rbt %s: %w", id, err)
	}
	return !rec.IsActive, nil
}

// selectRBT evaluates the client's active team for the window and picks the
// optimal caregiver. Members the directory marks inactive drop out before
// any window check. Team primacy comes first: an available primary always
// wins. A single eligible member is chosen as the only option. Otherwise the
// highest continuity score wins, with ties keeping the team's member order.
func selectRBT(ctx context.Context, r reader, cfg Config, now time.Time, clientID string, start, end time.Time, location string) (Selection, error) {
	team, err := r.FindActiveTeamForClient(ctx, clientID)
	if err != nil {
		return Selection{}, err
	}
	history, err := r.FindByClient(ctx, clientID)
	if err != nil {
		return Selection{}, fmt.Errorf("load client history: %w", err)
	}

	candidates := make([]RankedCandidate, 0, len(team.RBTIDs))
	for _, rbtID := range team.RBTIDs {
		cand := RankedCandidate{
			RBTID:     rbtID,
			IsPrimary: rbtID == team.PrimaryRBTID,
			Score:     ScoreHistory(now, rbtID, clientID, history),
		}
		inactive, err := rbtInactive(ctx, r, rbtID)
		if err != nil {
			return Selection{}, err
		}
		if inactive {
			cand.Violations = []Violation{violationf(ViolationRBTInactive, "RBT %s is inactive in the caregiver directory", rbtID)}
			candidates = append(candidates, cand)
			continue
		}
		overlapping, err := r.CheckConflicts(ctx, "", rbtID, start, end)
		if err != nil {
			return Selection{}, fmt.Errorf("check conflicts for %s: %w", rbtID, err)
		}
		blocking, _ := SplitConflicts(DetectConflicts(Slot{
			ClientID: clientID,
			RBTID:    rbtID,
			Start:    start,
			End:      end,
			Location: location,
		}, overlapping))
		cand.Conflicts = blocking

		rbtSessions, err := r.FindByRBT(ctx, rbtID)
		if err != nil {
			return Selection{}, fmt.Errorf("load sessions for %s: %w", rbtID, err)
		}
		cand.Violations = CheckRBTDay(cfg, rbtSessions, start, end)
		cand.Eligible = len(cand.Conflicts) == 0 && len(cand.Violations) == 0
		candidates = append(candidates, cand)
	}
	sortCandidates(candidates)

	sel := Selection{Candidates: candidates}
	var eligible []RankedCandidate
	for _, c := range candidates {
		if c.Eligible {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return sel, fmt.Errorf("%w: client %s at %s", ErrNoCandidates, clientID, start.Format(time.RFC3339))
	}
	chosen, reason := pickFrom(eligible)
	sel.RBTID = chosen.RBTID
	sel.Reason = reason
	sel.Score = chosen.Score
	return sel, nil
}

// pickFrom applies the selection precedence to a non-empty, score-ranked
// candidate list: an available primary always wins, a lone candidate is the
// only option, and the top score takes the rest.
func pickFrom(choosable []RankedCandidate) (RankedCandidate, string) {
	for _, c := range choosable {
		if c.IsPrimary {
			return c, ReasonPrimary
		}
	}
	if len(choosable) == 1 {
		return choosable[0], ReasonOnlyAvailable
	}
	return choosable[0], ReasonContinuity
}

// sortCandidates orders eligible candidates first, then by score descending.
// The sort is stable: equal scores keep the team's member order.
func sortCandidates(cands []RankedCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Eligible != cands[j].Eligible {
			return cands[i].Eligible
		}
		return cands[i].Score.Score > cands[j].Score.Score
	})
}
