package test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/novabehavior/abacore/core/analytics"
	"github.com/novabehavior/abacore/core/auditlog"
	"github.com/novabehavior/abacore/core/model"
	"github.com/novabehavior/abacore/core/recovery"
	"github.com/novabehavior/abacore/core/schedule"
	"github.com/novabehavior/abacore/core/store"
	"github.com/novabehavior/abacore/infra/logger"
	"github.com/novabehavior/abacore/test/util"
)

// TestAuditTrailPersistsAcrossReopen commits a schedule and a cancellation
// through a JSONL audit backend, then reopens the file and rebuilds the
// trail and the disruption report from disk alone.
func TestAuditTrailPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "schedule_events.log")
	audit, err := auditlog.NewJSONLStore(path)
	if err != nil {
		t.Fatalf("audit store: %v", err)
	}

	st := store.NewMemoryStore(audit, nil)
	scfg := schedule.Config{}
	scfg.SetDefaults()
	sched, err := schedule.NewScheduler(scfg, st, nil, logger.NopLogger{}, nil, nil)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	rcfg := recovery.Config{}
	rcfg.SetDefaults()
	eng, err := recovery.NewEngine(rcfg, st, nil, logger.NopLogger{}, nil, nil)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	if err := util.SeedPractice(ctx, st, time.Now().UTC()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	start, end := util.NextBusinessSlot(2 * time.Hour)
	res := sched.ScheduleSession(ctx, schedule.Request{ClientID: "client-1", Start: start, End: end, Actor: "intake"})
	if !res.OK() {
		t.Fatalf("schedule: %+v", res)
	}
	canc := eng.CancelSession(ctx, recovery.CancelRequest{SessionID: res.Session.ID, Reason: "Therapist out sick", Actor: "front-desk"})
	if !canc.OK() {
		t.Fatalf("cancel: %+v", canc)
	}
	if err := audit.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := auditlog.NewJSONLStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	trail, err := reopened.AuditTrail(ctx, auditlog.EntitySession, res.Session.ID, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("trail: %v", err)
	}
	if len(trail) != 2 || trail[0].Type != model.EventSessionCreated || trail[1].Type != model.EventSessionCancelled {
		t.Fatalf("trail after reopen: %+v", trail)
	}
	if trail[1].Reason != "Therapist out sick" || trail[1].Actor != "front-desk" {
		t.Fatalf("cancel event fields: %+v", trail[1])
	}

	// A reporter over the reopened file still counts the disruption even
	// though the in-memory session state is gone.
	rep, err := analytics.NewReporter(analytics.Config{}, reopened, store.NewMemoryStore(nil, nil), nil, logger.NopLogger{})
	if err != nil {
		t.Fatalf("reporter: %v", err)
	}
	frep, err := rep.DisruptionFrequencyReport(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if frep.TotalDisruptions != 1 || frep.CountsByType["created"] != 1 || frep.CountsByType["cancelled"] != 1 {
		t.Fatalf("report from disk: %+v", frep)
	}
}
