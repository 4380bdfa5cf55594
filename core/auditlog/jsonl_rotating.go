package auditlog

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/novabehavior/abacore/core/model"
)

// RotatingJSONLStore appends schedule events to a JSONL file with automatic
// size-based rotation.
type RotatingJSONLStore struct {
	logger *lumberjack.Logger
	path   string
}

// NewRotatingJSONLStore creates a store with rotation options in megabytes and days.
func NewRotatingJSONLStore(path string, maxSizeMB, maxBackups, maxAgeDays int) (*RotatingJSONLStore, error) {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   false,
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &RotatingJSONLStore{logger: lj, path: path}, nil
}

// Record writes the event and triggers rotation if needed.
func (s *RotatingJSONLStore) Record(ctx context.Context, ev model.ScheduleEvent) error {
	_ = ctx
	enc := json.NewEncoder(s.logger)
	return enc.Encode(ev)
}

// Query reads all log files, including rotated ones.
func (s *RotatingJSONLStore) Query(ctx context.Context, q Query) ([]model.ScheduleEvent, error) {
	_ = ctx
	files, err := filepath.Glob(s.path + "*")
	if err != nil {
		return nil, err
	}
	var res []model.ScheduleEvent
	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			continue
		}
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
		_ = f.Close()
	}
	sortEvents(res)
	return limit(res, q.Limit), nil
}

// AuditTrail returns the ordered events for one session, client or RBT.
func (s *RotatingJSONLStore) AuditTrail(ctx context.Context, entity EntityType, id string, start, end time.Time) ([]model.ScheduleEvent, error) {
	q, err := trailQuery(entity, id, start, end)
	if err != nil {
		return nil, err
	}
	return s.Query(ctx, q)
}

// Close closes the underlying writer.
func (s *RotatingJSONLStore) Close() error {
	return s.logger.Close()
}
