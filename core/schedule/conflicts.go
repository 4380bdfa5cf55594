package schedule

import (
	"fmt"
	"time"

	"github.com/novabehavior/abacore/core/model"
)

// ConflictType classifies why two sessions cannot coexist.
type ConflictType string

const (
	ConflictTimeOverlap         ConflictType = "time_overlap"
	ConflictRBTDoubleBooking    ConflictType = "rbt_double_booking"
	ConflictClientDoubleBooking ConflictType = "client_double_booking"
	ConflictLocation            ConflictType = "location_conflict"
)

// Severity splits conflicts into blockers and warnings. Only blockers stop
// a session from being scheduled.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Slot is a proposed session placement checked against existing sessions.
type Slot struct {
	ClientID string    `json:"client_id"`
	RBTID    string    `json:"rbt_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Location string    `json:"location,omitempty"`
}

// Conflict reports one existing session that collides with a proposed slot.
type Conflict struct {
	Type      ConflictType `json:"type"`
	Severity  Severity     `json:"severity"`
	SessionID string       `json:"session_id"`
	ClientID  string       `json:"client_id"`
	RBTID     string       `json:"rbt_id"`
	Start     time.Time    `json:"start"`
	End       time.Time    `json:"end"`
	Message   string       `json:"message"`
}

// DetectConflicts checks the slot against existing sessions and reports every
// collision; it never stops at the first. Each overlapping session yields at
// most one conflict, classified by what is shared:
//
//   - same client and same RBT: time_overlap (error)
//   - same RBT, different client: rbt_double_booking (error)
//   - same client, different RBT: client_double_booking (error)
//   - different parties at the same named location: location_conflict (warning)
//
// Inactive sessions hold no slot and are skipped.
func DetectConflicts(slot Slot, existing []model.Session) []Conflict {
	var out []Conflict
	for _, s := range existing {
		if !s.IsActive() || !s.Overlaps(slot.Start, slot.End) {
			continue
		}
		sameClient := slot.ClientID != "" && s.ClientID == slot.ClientID
		sameRBT := slot.RBTID != "" && s.RBTID == slot.RBTID
		c := Conflict{
			SessionID: s.ID,
			ClientID:  s.ClientID,
			RBTID:     s.RBTID,
			Start:     s.Start,
			End:       s.End,
		}
		switch {
		case sameClient && sameRBT:
			c.Type = ConflictTimeOverlap
			c.Severity = SeverityError
			c.Message = fmt.Sprintf("client %s and RBT %s already meet from %s to %s", s.ClientID, s.RBTID, s.Start.Format("15:04"), s.End.Format("15:04"))
		case sameRBT:
			c.Type = ConflictRBTDoubleBooking
			c.Severity = SeverityError
			c.Message = fmt.Sprintf("RBT %s is booked with client %s from %s to %s", s.RBTID, s.ClientID, s.Start.Format("15:04"), s.End.Format("15:04"))
		case sameClient:
			c.Type = ConflictClientDoubleBooking
			c.Severity = SeverityError
			c.Message = fmt.Sprintf("client %s already has a session with RBT %s from %s to %s", s.ClientID, s.RBTID, s.Start.Format("15:04"), s.End.Format("15:04"))
		case slot.Location != "" && s.Location == slot.Location:
			c.Type = ConflictLocation
			c.Severity = SeverityWarning
			c.Message = fmt.Sprintf("location %s also hosts client %s with RBT %s at that time", s.Location, s.ClientID, s.RBTID)
		default:
			continue
		}
		out = append(out, c)
	}
	return out
}

// SplitConflicts partitions conflicts into blockers and warnings.
func SplitConflicts(conflicts []Conflict) (blocking, warnings []Conflict) {
	for _, c := range conflicts {
		if c.Severity == SeverityError {
			blocking = append(blocking, c)
		} else {
			warnings = append(warnings, c)
		}
	}
	return blocking, warnings
}
