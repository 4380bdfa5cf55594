package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/novabehavior/abacore/core/auditlog"
	"github.com/novabehavior/abacore/core/clock"
	"github.com/novabehavior/abacore/core/logger"
	"github.com/novabehavior/abacore/core/model"
	"github.com/novabehavior/abacore/core/store"
)

// Reporter builds disruption reports from the audit log and committed
// session history.
type Reporter struct {
	cfg      Config
	audit    auditlog.Store
	sessions store.SessionReader
	clk      clock.Clock
	log      logger.Logger
}

// NewReporter creates a reporter over the given audit log and session reader.
func NewReporter(cfg Config, audit auditlog.Store, sessions store.SessionReader, clk clock.Clock, log logger.Logger) (*Reporter, error) {
	if audit == nil || sessions == nil || log == nil {
		return nil, fmt.Errorf("analytics: nil parameter provided to NewReporter")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("analytics: invalid config: %w", err)
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Reporter{cfg: cfg, audit: audit, sessions: sessions, clk: clk, log: log}, nil
}

// window normalizes a report range. A zero end means "up to now"; a zero
// start covers all recorded history.
func (r *Reporter) window(start, end time.Time) (time.Time, time.Time, error) {
	if end.IsZero() {
		end = r.clk.Now()
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("analytics: window start %s is not before end %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return start, end, nil
}

// AuditTrail returns the ordered schedule events for one session, client or
// caregiver within the range.
func (r *Reporter) AuditTrail(ctx context.Context, entity auditlog.EntityType, id string, start, end time.Time) ([]model.ScheduleEvent, error) {
	if id == "" {
		return nil, fmt.Errorf("analytics: empty %s id", entity)
	}
	evs, err := r.audit.AuditTrail(ctx, entity, id, start, end)
	if err != nil {
		return nil, fmt.Errorf("load audit trail: %w", err)
	}
	return evs, nil
}
