package analytics

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/novabehavior/abacore/core/auditlog"
	"github.com/novabehavior/abacore/core/model"
)

// profileFlagRate is the disruption rate, in percent, above which a profile
// carries a recommendation.
const profileFlagRate = 20.0

// ClientProfile describes how disruptions affect one client's services.
// DisruptionRate and ContinuityImpact are on a 0-100 scale.
type ClientProfile struct {
	ClientID          string    `json:"client_id"`
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	TotalSessions     int       `json:"total_sessions"`
	DisruptedSessions int       `json:"disrupted_sessions"`
	DisruptionRate    float64   `json:"disruption_rate"`
	MostCommonType    string    `json:"most_common_type"`
	ContinuityImpact  float64   `json:"continuity_impact"`
	Recommendations   []string  `json:"recommendations,omitempty"`
}

// RBTProfile separates the disruptions a caregiver caused from those they
// were merely affected by. Reliability is 100 minus the caused-disruption
// rate, floored at zero.
type RBTProfile struct {
	RBTID                 string    `json:"rbt_id"`
	Start                 time.Time `json:"start"`
	End                   time.Time `json:"end"`
	TotalSessions         int       `json:"total_sessions"`
	CausedDisruptions     int       `json:"caused_disruptions"`
	AffectedByDisruptions int       `json:"affected_by_disruptions"`
	Reliability           float64   `json:"reliability"`
	Recommendations       []string  `json:"recommendations,omitempty"`
}

// ClientDisruptionProfile reports disruption exposure for one client over
// [start, end]. Sessions count when they start inside the window; disrupted
// sessions are counted once no matter how many events touched them.
func (r *Reporter) ClientDisruptionProfile(ctx context.Context, clientID string, start, end time.Time) (ClientProfile, error) {
	if clientID == "" {
		return ClientProfile{}, fmt.Errorf("analytics: empty client id")
	}
	start, end, err := r.window(start, end)
	if err != nil {
		return ClientProfile{}, err
	}
	sessions, err := r.sessions.FindByClient(ctx, clientID)
	if err != nil {
		return ClientProfile{}, fmt.Errorf("load client sessions: %w", err)
	}
	events, err := r.audit.Query(ctx, auditlog.Query{Start: start, End: end, ClientID: clientID})
	if err != nil {
		return ClientProfile{}, fmt.Errorf("query audit log: %w", err)
	}

	p := ClientProfile{ClientID: clientID, Start: start, End: end}
	for _, s := range sessions {
		if inWindow(s.Start, start, end) {
			p.TotalSessions++
		}
	}
	bySession := disruptionsFor(events)
	p.DisruptedSessions = len(bySession)
	typeCounts := make(map[string]int)
	for _, evs := range bySession {
		for _, ev := range evs {
			typeCounts[string(ev.Type)]++
		}
	}
	if p.TotalSessions > 0 {
		p.DisruptionRate = float64(p.DisruptedSessions) / float64(p.TotalSessions) * 100
	}
	p.MostCommonType = modeType(typeCounts)
	p.ContinuityImpact = math.Min(100, float64(p.DisruptedSessions)*10)
	p.Recommendations = clientRecommendations(p)
	return p, nil
}

// RBTDisruptionProfile reports reliability for one caregiver over
// [start, end]. A session disrupted by both a caregiver-initiated and an
// external event counts as caused.
func (r *Reporter) RBTDisruptionProfile(ctx context.Context, rbtID string, start, end time.Time) (RBTProfile, error) {
	if rbtID == "" {
		return RBTProfile{}, fmt.Errorf("analytics: empty rbt id")
	}
	start, end, err := r.window(start, end)
	if err != nil {
		return RBTProfile{}, err
	}
	sessions, err := r.sessions.FindByRBT(ctx, rbtID)
	if err != nil {
		return RBTProfile{}, fmt.Errorf("load rbt sessions: %w", err)
	}
	events, err := r.audit.Query(ctx, auditlog.Query{Start: start, End: end, RBTID: rbtID})
	if err != nil {
		return RBTProfile{}, fmt.Errorf("query audit log: %w", err)
	}

	p := RBTProfile{RBTID: rbtID, Start: start, End: end}
	for _, s := range sessions {
		if inWindow(s.Start, start, end) {
			p.TotalSessions++
		}
	}
	for _, evs := range disruptionsFor(events) {
		caused := false
		for _, ev := range evs {
			if caregiverInitiated(ev) {
				caused = true
				break
			}
		}
		if caused {
			p.CausedDisruptions++
		} else {
			p.AffectedByDisruptions++
		}
	}
	causedRate := 0.0
	if p.TotalSessions > 0 {
		causedRate = float64(p.CausedDisruptions) / float64(p.TotalSessions) * 100
	}
	p.Reliability = math.Max(0, 100-causedRate)
	p.Recommendations = rbtRecommendations(p)
	return p, nil
}

// inWindow reports whether t falls inside [start, end].
func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// caregiverInitiated reports whether a disruption originated with the
// caregiver rather than the client or clinic. Free-text reasons naming the
// caregiver role count alongside explicit unavailability events.
func caregiverInitiated(ev model.ScheduleEvent) bool {
	if ev.Type == model.EventRBTUnavailable {
		return true
	}
	reason := strings.ToLower(ev.Reason)
	for _, marker := range []string{"rbt", "caregiver", "therapist"} {
		if strings.Contains(reason, marker) {
			return true
		}
	}
	return false
}

// modeType returns the most frequent type, breaking ties alphabetically.
func modeType(counts map[string]int) string {
	best, bestN := "", 0
	for t, n := range counts {
		if n > bestN || (n == bestN && n > 0 && t < best) {
			best, bestN = t, n
		}
	}
	if best == "" {
		return "No disruptions"
	}
	return best
}

func clientRecommendations(p ClientProfile) []string {
	var recs []string
	if p.TotalSessions == 0 {
		return nil
	}
	if p.DisruptionRate > profileFlagRate {
		recs = append(recs, fmt.Sprintf("Disruption rate %.0f%% exceeds %.0f%%; review scheduling fit with the care team", p.DisruptionRate, profileFlagRate))
	}
	if p.MostCommonType == string(model.EventSessionNoShow) && p.DisruptedSessions >= 2 {
		recs = append(recs, "Repeated no-shows; send confirmation reminders before each session")
	}
	if p.ContinuityImpact >= 50 {
		recs = append(recs, "High continuity impact; prioritize rebooking with the same caregiver")
	}
	return recs
}

func rbtRecommendations(p RBTProfile) []string {
	var recs []string
	if p.CausedDisruptions >= 3 {
		recs = append(recs, fmt.Sprintf("Unavailability disrupted %d sessions; review this caregiver's schedule load", p.CausedDisruptions))
	}
	if p.TotalSessions > 0 && p.Reliability < 80 {
		recs = append(recs, "Reliability below 80%; line up backup coverage for this caregiver's clients")
	}
	return recs
}
