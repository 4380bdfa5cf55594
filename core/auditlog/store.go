// Package auditlog persists the append-only schedule change log. Every
// mutation of a session produces exactly one ScheduleEvent; the log is the
// sole source for disruption analytics and audit trails.
package auditlog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/novabehavior/abacore/core/model"
)

// EntityType selects the id column an audit trail is keyed on.
type EntityType string

const (
	EntitySession EntityType = "session"
	EntityClient  EntityType = "client"
	EntityRBT     EntityType = "rbt"
)

// Query defines filters for retrieving schedule events.
type Query struct {
	Start     time.Time
	End       time.Time
	Types     []model.EventType
	SessionID string
	ClientID  string
	RBTID     string
	Limit     int
}

// Store persists ScheduleEvents and supports querying. Record is append-only;
// stored events are never mutated or deleted.
type Store interface {
	Record(ctx context.Context, ev model.ScheduleEvent) error
	Query(ctx context.Context, q Query) ([]model.ScheduleEvent, error)
	AuditTrail(ctx context.Context, entity EntityType, id string, start, end time.Time) ([]model.ScheduleEvent, error)
	Close() error
}

// matches reports whether the event passes every filter of q.
func matches(ev model.ScheduleEvent, q Query) bool {
	if !q.Start.IsZero() && ev.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && ev.Timestamp.After(q.End) {
		return false
	}
	if len(q.Types) > 0 {
		found := false
		for _, t := range q.Types {
			if ev.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.SessionID != "" && ev.SessionID != q.SessionID {
		return false
	}
	if q.ClientID != "" && ev.ClientID != q.ClientID {
		return false
	}
	if q.RBTID != "" && ev.RBTID != q.RBTID {
		return false
	}
	return true
}

// trailQuery translates an entity reference into a Query.
func trailQuery(entity EntityType, id string, start, end time.Time) (Query, error) {
	q := Query{Start: start, End: end}
	switch entity {
	case EntitySession:
		q.SessionID = id
	case EntityClient:
		q.ClientID = id
	case EntityRBT:
		q.RBTID = id
	default:
		return Query{}, fmt.Errorf("unknown audit entity type %q", entity)
	}
	return q, nil
}

// sortEvents orders events by timestamp, oldest first. Sorting is stable so
// events recorded at the same instant keep insertion order.
func sortEvents(evs []model.ScheduleEvent) {
	sort.SliceStable(evs, func(i, j int) bool {
		return evs[i].Timestamp.Before(evs[j].Timestamp)
	})
}

// limit trims evs to at most n entries when n is positive.
func limit(evs []model.ScheduleEvent, n int) []model.ScheduleEvent {
	if n > 0 && len(evs) > n {
		return evs[:n]
	}
	return evs
}
