package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/novabehavior/abacore/core/auditlog"
	"github.com/novabehavior/abacore/core/model"
)

// Trend labels the direction of disruption counts across a report window.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// ReasonCount is one grouped free-text cancellation reason and its frequency.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// FrequencyReport summarizes schedule disruptions over a time window.
// Histograms bucket disruption timestamps by hour of day and weekday
// (Sunday first). TrendSlope is the least-squares fit over daily disruption
// counts, in disruptions per day.
type FrequencyReport struct {
	Start            time.Time      `json:"start"`
	End              time.Time      `json:"end"`
	TotalSessions    int            `json:"total_sessions"`
	TotalDisruptions int            `json:"total_disruptions"`
	DisruptionRate   float64        `json:"disruption_rate"`
	CountsByType     map[string]int `json:"counts_by_type"`
	TopReasons       []ReasonCount  `json:"top_reasons,omitempty"`
	MostCommonReason string         `json:"most_common_reason"`
	Trend            Trend          `json:"trend"`
	TrendSlope       float64        `json:"trend_slope"`
	HourHistogram    [24]int        `json:"hour_histogram"`
	DayHistogram     [7]int         `json:"day_histogram"`
}

// DisruptionFrequencyReport aggregates schedule events recorded within
// [start, end]. A zero end means "up to now"; a zero start covers all
// history, in which case trend calculations anchor on the earliest recorded
// disruption instead of the window start.
func (r *Reporter) DisruptionFrequencyReport(ctx context.Context, start, end time.Time) (FrequencyReport, error) {
	start, end, err := r.window(start, end)
	if err != nil {
		return FrequencyReport{}, err
	}
	events, err := r.audit.Query(ctx, auditlog.Query{Start: start, End: end})
	if err != nil {
		return FrequencyReport{}, fmt.Errorf("query audit log: %w", err)
	}
	sessions, err := r.sessions.FindByDateRange(ctx, start, end)
	if err != nil {
		return FrequencyReport{}, fmt.Errorf("load sessions: %w", err)
	}

	rep := FrequencyReport{
		Start:         start,
		End:           end,
		TotalSessions: len(sessions),
		CountsByType:  make(map[string]int),
	}
	reasons := make(map[string]int)
	var disruptions []time.Time
	for _, ev := range events {
		rep.CountsByType[string(ev.Type)]++
		if !ev.Type.IsDisruption() {
			continue
		}
		rep.TotalDisruptions++
		rep.HourHistogram[ev.Timestamp.Hour()]++
		rep.DayHistogram[int(ev.Timestamp.Weekday())]++
		disruptions = append(disruptions, ev.Timestamp)
		if reason := strings.ToLower(strings.TrimSpace(ev.Reason)); reason != "" {
			reasons[reason]++
		}
	}
	if rep.TotalSessions > 0 {
		rep.DisruptionRate = float64(rep.TotalDisruptions) / float64(rep.TotalSessions)
	}
	rep.TopReasons = rankReasons(reasons, r.cfg.TopReasons)
	switch {
	case len(rep.TopReasons) > 0:
		rep.MostCommonReason = rep.TopReasons[0].Reason
	case rep.TotalDisruptions == 0:
		rep.MostCommonReason = "No disruptions"
	default:
		rep.MostCommonReason = "Not recorded"
	}

	seriesStart := start
	if seriesStart.IsZero() && len(disruptions) > 0 {
		seriesStart = disruptions[0]
		for _, t := range disruptions[1:] {
			if t.Before(seriesStart) {
				seriesStart = t
			}
		}
	}
	first, second := splitHalves(seriesStart, end, disruptions)
	rep.Trend = trendLabel(first, second, r.cfg.TrendBand)
	rep.TrendSlope = dailySlope(seriesStart, end, disruptions)
	return rep, nil
}

// splitHalves counts disruptions falling in the first and second half of the
// window.
func splitHalves(start, end time.Time, disruptions []time.Time) (first, second int) {
	mid := start.Add(end.Sub(start) / 2)
	for _, t := range disruptions {
		if t.Before(mid) {
			first++
		} else {
			second++
		}
	}
	return first, second
}

// trendLabel classifies the relative change between the two half-window
// counts against the configured band.
func trendLabel(first, second int, band float64) Trend {
	if first == 0 {
		if second == 0 {
			return TrendStable
		}
		return TrendIncreasing
	}
	rel := (float64(second) - float64(first)) / float64(first)
	switch {
	case rel > band:
		return TrendIncreasing
	case rel < -band:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// dailySlope fits a least-squares line to daily disruption counts and returns
// its slope. Windows shorter than two days carry no trend information.
func dailySlope(start, end time.Time, disruptions []time.Time) float64 {
	if start.IsZero() || len(disruptions) == 0 {
		return 0
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 2 {
		return 0
	}
	counts := make([]float64, days)
	for _, t := range disruptions {
		idx := int(t.Sub(start).Hours() / 24)
		if idx >= 0 && idx < days {
			counts[idx]++
		}
	}
	xs := make([]float64, days)
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, counts, nil, false)
	return slope
}

// rankReasons orders grouped reasons by count, then alphabetically, keeping
// the top n.
func rankReasons(counts map[string]int, n int) []ReasonCount {
	out := make([]ReasonCount, 0, len(counts))
	for reason, count := range counts {
		out = append(out, ReasonCount{Reason: reason, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Reason < out[j].Reason
		}
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// disruptionsFor collects the disruption events among evs, keyed by the
// sessions they touched. Events without a session id are counted under the
// event id so they are never silently dropped.
func disruptionsFor(evs []model.ScheduleEvent) map[string][]model.ScheduleEvent {
	out := make(map[string][]model.ScheduleEvent)
	for _, ev := range evs {
		if !ev.Type.IsDisruption() {
			continue
		}
		key := ev.SessionID
		if key == "" {
			key = "event:" + ev.ID
		}
		out[key] = append(out[key], ev)
	}
	return out
}
