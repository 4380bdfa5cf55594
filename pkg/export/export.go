package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/novabehavior/abacore/core/analytics"
	"github.com/novabehavior/abacore/core/model"
)

// WriteReportJSON writes the disruption frequency report to w in JSON format.
func WriteReportJSON(w io.Writer, report analytics.FrequencyReport) error {
	enc := json.NewEncoder(w)
	return enc.Encode(report)
}

// WriteReportCSV writes the disruption frequency report to w as metric/value
// rows. Per-type counts follow the summary rows, sorted by event type.
func WriteReportCSV(w io.Writer, report analytics.FrequencyReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"metric", "value"}); err != nil {
		return err
	}
	rows := [][]string{
		{"start", report.Start.Format(time.RFC3339)},
		{"end", report.End.Format(time.RFC3339)},
		{"total_sessions", strconv.Itoa(report.TotalSessions)},
		{"total_disruptions", strconv.Itoa(report.TotalDisruptions)},
		{"disruption_rate", strconv.FormatFloat(report.DisruptionRate, 'f', -1, 64)},
		{"most_common_reason", report.MostCommonReason},
		{"trend", string(report.Trend)},
		{"trend_slope", strconv.FormatFloat(report.TrendSlope, 'f', -1, 64)},
	}
	types := make([]string, 0, len(report.CountsByType))
	for t := range report.CountsByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		rows = append(rows, []string{"count_" + t, strconv.Itoa(report.CountsByType[t])})
	}
	for _, rec := range rows {
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTrailJSON writes an audit trail to w in JSON format.
func WriteTrailJSON(w io.Writer, trail []model.ScheduleEvent) error {
	enc := json.NewEncoder(w)
	return enc.Encode(trail)
}

// WriteTrailCSV writes an audit trail to w in CSV format, one event per row.
func WriteTrailCSV(w io.Writer, trail []model.ScheduleEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "type", "session_id", "client_id", "rbt_id", "reason", "actor"}); err != nil {
		return err
	}
	for _, ev := range trail {
		rec := []string{
			ev.Timestamp.Format(time.RFC3339),
			string(ev.Type),
			ev.SessionID,
			ev.ClientID,
			ev.RBTID,
			ev.Reason,
			ev.Actor,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
