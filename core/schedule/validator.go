package schedule

import (
	"fmt"
	"time"

	"github.com/novabehavior/abacore/core/model"
)

// Violation codes reported by window and caregiver-rule validation.
const (
	ViolationInvalidWindow     = "invalid_window"
	ViolationMissingClient     = "missing_client"
	ViolationPastStart         = "past_start"
	ViolationWeekday           = "weekday_not_allowed"
	ViolationOutsideHours      = "outside_hours"
	ViolationWrongDuration     = "wrong_duration"
	ViolationDailyLimit        = "daily_limit"
	ViolationInsufficientRest  = "insufficient_break"
	ViolationNotOnTeam         = "not_on_team"
	ViolationRBTInactive       = "rbt_inactive"
	ViolationIllegalTransition = "illegal_transition"
)

// Violation describes one business-rule failure for a proposed session.
// Validation collects every violation instead of stopping at the first.
type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func violationf(code, format string, args ...any) Violation {
	return Violation{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CheckWindow validates a proposed session window against the business rules
// that need no store access: the window must be in the future, on an allowed
// weekday, inside business hours on a single day, and of the mandated length.
func CheckWindow(cfg Config, now, start, end time.Time) []Violation {
	var out []Violation
	if !end.After(start) {
		out = append(out, violationf(ViolationInvalidWindow, "end %s is not after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339)))
		return out
	}
	if start.Before(now) {
		out = append(out, violationf(ViolationPastStart, "start %s is in the past", start.Format(time.RFC3339)))
	}
	if !cfg.WeekdayAllowed(start.Weekday()) {
		out = append(out, violationf(ViolationWeekday, "%s is not a working day", start.Weekday()))
	}
	// Minutes since midnight of the start day. A window spilling into the
	// next day exceeds DayEndHour*60 and fails the hours check.
	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	startMin := int(start.Sub(dayStart).Minutes())
	endMin := int(end.Sub(dayStart).Minutes())
	if startMin < cfg.DayStartHour*60 || endMin > cfg.DayEndHour*60 {
		out = append(out, violationf(ViolationOutsideHours, "session must lie between %02d:00 and %02d:00", cfg.DayStartHour, cfg.DayEndHour))
	}
	if d := end.Sub(start); d != cfg.SessionDuration() {
		out = append(out, violationf(ViolationWrongDuration, "session must last %s, got %s", cfg.SessionDuration(), d))
	}
	return out
}

// CheckRBTDay validates the caregiver-side rules for a proposed window given
// the RBT's existing sessions: the daily session cap and the minimum break
// around adjacent sessions. Overlapping sessions are a conflict, not a
// violation, and are skipped here.
func CheckRBTDay(cfg Config, existing []model.Session, start, end time.Time) []Violation {
	var out []Violation
	sameDay := 0
	for _, s := range existing {
		if !s.IsActive() {
			continue
		}
		if s.SameDay(start) {
			sameDay++
		}
		if s.Overlaps(start, end) {
			continue
		}
		if !s.End.After(start) {
			if gap := start.Sub(s.End); gap < cfg.MinBreak() {
				out = append(out, violationf(ViolationInsufficientRest, "only %s after the session ending %s, need %s", gap, s.End.Format("15:04"), cfg.MinBreak()))
			}
		} else if !end.After(s.Start) {
			if gap := s.Start.Sub(end); gap < cfg.MinBreak() {
				out = append(out, violationf(ViolationInsufficientRest, "only %s before the session starting %s, need %s", gap, s.Start.Format("15:04"), cfg.MinBreak()))
			}
		}
	}
	if sameDay >= cfg.MaxSessionsPerDay {
		out = append(out, violationf(ViolationDailyLimit, "caregiver already has %d sessions that day, limit is %d", sameDay, cfg.MaxSessionsPerDay))
	}
	return out
}
