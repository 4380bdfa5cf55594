package auditlog

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/novabehavior/abacore/core/model"
)

// JSONLStore appends schedule events to a JSONL file, one event per line.
type JSONLStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONLStore creates the file if needed and returns the store.
func NewJSONLStore(path string) (*JSONLStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	if cerr := f.Close(); cerr != nil {
		return nil, cerr
	}
	return &JSONLStore{path: path}, nil
}

// Record appends the event to the file.
func (s *JSONLStore) Record(ctx context.Context, ev model.ScheduleEvent) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	enc := json.NewEncoder(f)
	return enc.Encode(ev)
}

// Query scans the file and returns events matching q. Lines that fail to
// decode are skipped rather than failing the whole query.
func (s *JSONLStore) Query(ctx context.Context, q Query) ([]model.ScheduleEvent, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var res []model.ScheduleEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev model.ScheduleEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		if matches(ev, q) {
			res = append(res, ev)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sortEvents(res)
	return limit(res, q.Limit), nil
}

// AuditTrail returns the ordered events for one session, client or RBT.
func (s *JSONLStore) AuditTrail(ctx context.Context, entity EntityType, id string, start, end time.Time) ([]model.ScheduleEvent, error) {
	q, err := trailQuery(entity, id, start, end)
	if err != nil {
		return nil, err
	}
	return s.Query(ctx, q)
}

// Close is a no-op; the file is opened per operation.
func (s *JSONLStore) Close() error { return nil }
