package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/novabehavior/abacore/core/analytics"
	"github.com/novabehavior/abacore/core/auditlog"
	"github.com/novabehavior/abacore/core/clock"
	"github.com/novabehavior/abacore/core/events"
	"github.com/novabehavior/abacore/core/model"
	"github.com/novabehavior/abacore/core/recovery"
	"github.com/novabehavior/abacore/core/schedule"
	"github.com/novabehavior/abacore/core/store"
	"github.com/novabehavior/abacore/infra/logger"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted scheduling walkthrough against an in-memory practice",
	RunE:  runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

// nextWeekdaySlot returns a weekday 09:00-12:00 UTC window at least one day
// ahead, so the walkthrough passes the future-start rule on any day it runs.
func nextWeekdaySlot() (time.Time, time.Time) {
	t := time.Now().UTC().AddDate(0, 0, 1)
	t = time.Date(t.Year(), t.Month(), t.Day(), 9, 0, 0, 0, time.UTC)
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, 1)
	}
	return t, t.Add(3 * time.Hour)
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logg := logger.New("demo")

	audit := auditlog.NewMemoryStore()
	st := store.NewMemoryStore(audit, clock.System())
	bus := events.NewBus()

	// A small practice: client-1 shares rbt-1 with client-2 and has a long
	// history with rbt-2; client-3 is new to rbt-2's caseload.
	now := time.Now().UTC()
	err := st.RunInTransaction(ctx, func(tx store.Tx) error {
		teams := []model.Team{
			{ID: "team-1", ClientID: "client-1", RBTIDs: []string{"rbt-1", "rbt-2"}, PrimaryRBTID: "rbt-1", EffectiveDate: now.AddDate(0, 0, -90), IsActive: true},
			{ID: "team-2", ClientID: "client-2", RBTIDs: []string{"rbt-1", "rbt-3"}, PrimaryRBTID: "rbt-1", EffectiveDate: now.AddDate(0, 0, -90), IsActive: true},
			{ID: "team-3", ClientID: "client-3", RBTIDs: []string{"rbt-2"}, PrimaryRBTID: "rbt-2", EffectiveDate: now.AddDate(0, 0, -30), IsActive: true},
		}
		for _, tm := range teams {
			if _, err := tx.UpsertTeam(tm); err != nil {
				return err
			}
		}
		for i, name := range []string{"Ava Chen", "Marcus Webb", "Dana Ruiz"} {
			rec := model.RBT{ID: fmt.Sprintf("rbt-%d", i+1), Name: name, IsActive: true}
			if _, err := tx.UpsertRBT(rec); err != nil {
				return err
			}
		}
		for day := 2; day <= 12; day += 2 {
			start := now.AddDate(0, 0, -day)
			if _, err := tx.CreateSession(model.Session{
				ClientID: "client-1",
				RBTID:    "rbt-2",
				Start:    start,
				End:      start.Add(3 * time.Hour),
				Status:   model.StatusCompleted,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed practice: %w", err)
	}

	var schedCfg schedule.Config
	schedCfg.SetDefaults()
	sched, err := schedule.NewScheduler(schedCfg, st, nil, logg, nil, bus)
	if err != nil {
		return err
	}
	var recCfg recovery.Config
	recCfg.SetDefaults()
	eng, err := recovery.NewEngine(recCfg, st, nil, logg, nil, bus)
	if err != nil {
		return err
	}
	rep, err := analytics.NewReporter(analytics.Config{}, audit, st, nil, logg)
	if err != nil {
		return err
	}

	sub := bus.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range sub {
			switch e := ev.(type) {
			case events.SessionScheduled:
				fmt.Printf("  [bus] scheduled %s: client %s with %s (%s)\n", e.Session.ID, e.Session.ClientID, e.Session.RBTID, e.Reason)
			case events.SessionCancelled:
				fmt.Printf("  [bus] cancelled %s: %s (%d alternative placements)\n", e.Session.ID, e.Reason, e.Opportunities)
			case events.ConflictDetected:
				fmt.Printf("  [bus] conflict for client %s: %d blocking overlaps\n", e.ClientID, e.Conflicts)
			case events.OpportunityFound:
				fmt.Printf("  [bus] opportunity: client %s with %s at %s (score %.0f)\n", e.ClientID, e.RBTID, e.Start.Format(time.RFC3339), e.Score)
			default:
				fmt.Printf("  [bus] %s\n", ev.Kind())
			}
		}
	}()

	slotStart, slotEnd := nextWeekdaySlot()

	fmt.Println("1. Scheduling client-2, no caregiver named: team primacy picks rbt-1.")
	resA := sched.ScheduleSession(ctx, schedule.Request{ClientID: "client-2", Start: slotStart, End: slotEnd, Actor: "demo"})
	printResult(resA)

	fmt.Println("2. Scheduling client-1 in the same slot: rbt-1 is busy, so teammate rbt-2 takes it.")
	resB := sched.ScheduleSession(ctx, schedule.Request{ClientID: "client-1", Start: slotStart, End: slotEnd, Actor: "demo"})
	printResult(resB)

	fmt.Println("3. Previewing the same request again: the engine reports the collision without booking.")
	resC := sched.PreviewSession(ctx, schedule.Request{ClientID: "client-1", Start: slotStart, End: slotEnd, Actor: "demo"})
	for _, c := range resC.Conflicts {
		fmt.Printf("  conflict %s (%s): %s\n", c.Type, c.Severity, c.Message)
	}

	if resB.OK() {
		fmt.Println("4. Cancelling client-1's new session: the freed slot is offered to rbt-2's other clients.")
		cres := eng.CancelSession(ctx, recovery.CancelRequest{
			SessionID:        resB.Session.ID,
			Reason:           "Client sick",
			Actor:            "demo",
			FindAlternatives: true,
		})
		for _, o := range cres.Opportunities {
			fmt.Printf("  candidate: client %s, score %.0f (%s)\n", o.ClientID, o.Score, o.Rationale)
		}
	}

	bus.Close()
	<-done

	fmt.Println("5. Disruption report over the whole history:")
	report, err := rep.DisruptionFrequencyReport(ctx, time.Time{}, time.Time{})
	if err != nil {
		return fmt.Errorf("frequency report: %w", err)
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func printResult(res schedule.Result) {
	if !res.OK() {
		fmt.Printf("  outcome: %s (%s)\n", res.Kind, res.Err)
		for _, v := range res.Violations {
			fmt.Printf("  violation %s: %s\n", v.Code, v.Message)
		}
		for _, c := range res.Conflicts {
			fmt.Printf("  conflict %s: %s\n", c.Type, c.Message)
		}
		return
	}
	fmt.Printf("  booked %s: client %s with %s, %s to %s\n",
		res.Session.ID, res.Session.ClientID, res.Session.RBTID,
		res.Session.Start.Format(time.RFC3339), res.Session.End.Format(time.RFC3339))
	if res.Selection != nil {
		fmt.Printf("  selection: %s (continuity %.0f)\n", res.Selection.Reason, res.Selection.Score.Score)
	}
	for _, w := range res.Warnings {
		fmt.Printf("  warning %s: %s\n", w.Type, w.Message)
	}
}
