package auditlog

import (
	"context"
	"sync"
	"time"

	"github.com/novabehavior/abacore/core/model"
)

// MemoryStore keeps schedule events in memory. It backs tests and the demo
// wiring; production deployments use the JSONL or SQLite backends.
type MemoryStore struct {
	mu     sync.RWMutex
	events []model.ScheduleEvent
}

// NewMemoryStore returns an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends the event.
func (s *MemoryStore) Record(ctx context.Context, ev model.ScheduleEvent) error {
	_ = ctx
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	return nil
}

// Query returns events matching q ordered by timestamp.
func (s *MemoryStore) Query(ctx context.Context, q Query) ([]model.ScheduleEvent, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []model.ScheduleEvent
	for _, ev := range s.events {
		if matches(ev, q) {
			res = append(res, ev)
		}
	}
	sortEvents(res)
	return limit(res, q.Limit), nil
}

// AuditTrail returns the ordered events for one session, client or RBT.
func (s *MemoryStore) AuditTrail(ctx context.Context, entity EntityType, id string, start, end time.Time) ([]model.ScheduleEvent, error) {
	q, err := trailQuery(entity, id, start, end)
	if err != nil {
		return nil, err
	}
	return s.Query(ctx, q)
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }
