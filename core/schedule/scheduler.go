package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/novabehavior/abacore/core/clock"
	"github.com/novabehavior/abacore/core/events"
	"github.com/novabehavior/abacore/core/logger"
	"github.com/novabehavior/abacore/core/metrics"
	"github.com/novabehavior/abacore/core/model"
	"github.com/novabehavior/abacore/core/notify"
	"github.com/novabehavior/abacore/core/store"
	"github.com/novabehavior/abacore/internal/eventbus"
)

// errAborted signals a business failure inside a transaction. The prepared
// Result carries the details; the transaction rolls back.
var errAborted = errors.New("schedule: aborted")

// Scheduler owns the session lifecycle. All writes go through the store's
// transactional unit so that conflict checks, session changes and audit
// events commit or roll back together.
type Scheduler struct {
	cfg        Config
	store      store.Store
	clk        clock.Clock
	log        logger.Logger
	sink       metrics.EventSink
	bus        *eventbus.Bus[events.Event]
	notifier   notify.Publisher
	ackTimeout time.Duration
}

// NewScheduler creates a scheduler. The bus may be nil when no observer is
// interested in schedule events.
func NewScheduler(cfg Config, st store.Store, clk clock.Clock, log logger.Logger, sink metrics.EventSink, bus *eventbus.Bus[events.Event]) (*Scheduler, error) {
	if st == nil || log == nil {
		return nil, fmt.Errorf("schedule: nil parameter provided to NewScheduler")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("schedule: invalid config: %w", err)
	}
	if clk == nil {
		clk = clock.System()
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Scheduler{
		cfg:   cfg,
		store: st,
		clk:   clk,
		log:   log,
		sink:  sink,
		bus:   bus,
	}, nil
}

// Config returns the scheduling rules in effect.
func (s *Scheduler) Config() Config { return s.cfg }

// Store exposes the underlying store for read-only collaborators.
func (s *Scheduler) Store() store.Store { return s.store }

// SetNotifier configures the publisher informed after committed changes.
// ackTimeout bounds the wait for delivery acknowledgments; zero disables
// the wait.
func (s *Scheduler) SetNotifier(p notify.Publisher, ackTimeout time.Duration) {
	s.notifier = p
	s.ackTimeout = ackTimeout
}

// placement is a conflict-free slot with its selection rationale.
type placement struct {
	slot     Slot
	sel      *Selection
	warnings []Conflict
}

// resolvePlacement runs every business check for the request against r:
// client-side collisions, caregiver selection or team-membership and
// directory-status validation, full conflict classification and the
// caregiver's daily rules. A non-nil
// Result reports a business failure; an error reports a store failure.
func (s *Scheduler) resolvePlacement(ctx context.Context, r reader, now time.Time, req Request, end time.Time) (placement, *Result, error) {
	overlapping, err := r.FindActiveByDateRange(ctx, req.Start, end)
	if err != nil {
		return placement{}, nil, fmt.Errorf("load overlapping sessions: %w", err)
	}

	var sel *Selection
	rbtID := req.RBTID
	if rbtID == "" {
		// Client-side collisions disqualify every candidate alike; check
		// them before ranking the team.
		blocking, _ := SplitConflicts(DetectConflicts(Slot{ClientID: req.ClientID, Start: req.Start, End: end}, overlapping))
		if len(blocking) > 0 {
			return placement{}, &Result{Kind: ResultConflict, Conflicts: blocking}, nil
		}
		chosen, err := selectRBT(ctx, r, s.cfg, now, req.ClientID, req.Start, end, req.Location)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrTeamNotFound):
				return placement{}, &Result{Kind: ResultNotFound, Err: err.Error()}, nil
			case errors.Is(err, ErrNoCandidates):
				return placement{}, &Result{Kind: ResultConflict, Err: err.Error(), Selection: &chosen}, nil
			default:
				return placement{}, nil, err
			}
		}
		sel = &chosen
		rbtID = chosen.RBTID
	} else {
		team, err := r.FindActiveTeamForClient(ctx, req.ClientID)
		if err != nil {
			if errors.Is(err, store.ErrTeamNotFound) {
				return placement{}, &Result{Kind: ResultNotFound, Err: err.Error()}, nil
			}
			return placement{}, nil, fmt.Errorf("load team: %w", err)
		}
		if !team.HasMember(rbtID) {
			v := violationf(ViolationNotOnTeam, "RBT %s is not on the active team of client %s", rbtID, req.ClientID)
			return placement{}, &Result{Kind: ResultValidationFailed, Violations: []Violation{v}}, nil
		}
		inactive, err := rbtInactive(ctx, r, rbtID)
		if err != nil {
			return placement{}, nil, err
		}
		if inactive {
			v := violationf(ViolationRBTInactive, "RBT %s is inactive in the caregiver directory", rbtID)
			return placement{}, &Result{Kind: ResultValidationFailed, Violations: []Violation{v}}, nil
		}
	}

	slot := Slot{ClientID: req.ClientID, RBTID: rbtID, Start: req.Start, End: end, Location: req.Location}
	blocking, warnings := SplitConflicts(DetectConflicts(slot, overlapping))
	if len(blocking) > 0 {
		return placement{}, &Result{Kind: ResultConflict, Conflicts: blocking, Selection: sel}, nil
	}

	rbtSessions, err := r.FindByRBT(ctx, rbtID)
	if err != nil {
		return placement{}, nil, fmt.Errorf("load sessions for %s: %w", rbtID, err)
	}
	if vs := CheckRBTDay(s.cfg, rbtSessions, req.Start, end); len(vs) > 0 {
		return placement{}, &Result{Kind: ResultValidationFailed, Violations: vs, Selection: sel}, nil
	}
	return placement{slot: slot, sel: sel, warnings: warnings}, nil, nil
}

// ScheduleSession validates, places and persists one session. On success the
// committed session, the selection rationale and any non-blocking warnings
// are returned; on failure the result explains what blocked the request and
// nothing is persisted.
func (s *Scheduler) ScheduleSession(ctx context.Context, req Request) Result {
	started := time.Now()
	res := s.scheduleSession(ctx, req)
	s.recordOutcome(req, res, time.Since(started))
	switch {
	case res.OK():
		reason := ""
		if res.Selection != nil {
			reason = res.Selection.Reason
		}
		if s.bus != nil {
			s.bus.Publish(events.SessionScheduled{Session: *res.Session, Reason: reason, Warnings: len(res.Warnings)})
		}
		s.notifySessionChange(*res.Session, string(model.EventSessionCreated), reason)
	case res.Kind == ResultConflict && s.bus != nil:
		s.bus.Publish(events.ConflictDetected{ClientID: req.ClientID, RBTID: req.RBTID, Conflicts: len(res.Conflicts)})
	}
	return res
}

func (s *Scheduler) scheduleSession(ctx context.Context, req Request) Result {
	now := s.clk.Now()
	end := req.End
	if end.IsZero() {
		end = req.Start.Add(s.cfg.SessionDuration())
	}
	var violations []Violation
	if req.ClientID == "" {
		violations = append(violations, violationf(ViolationMissingClient, "client id is required"))
	}
	violations = append(violations, CheckWindow(s.cfg, now, req.Start, end)...)
	if len(violations) > 0 {
		return Result{Kind: ResultValidationFailed, Violations: violations}
	}

	var (
		created model.Session
		pl      placement
		failure *Result
	)
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		var err error
		pl, failure, err = s.resolvePlacement(ctx, tx, now, req, end)
		if err != nil {
			return err
		}
		if failure != nil {
			return errAborted
		}

		created, err = tx.CreateSession(model.Session{
			ClientID:  req.ClientID,
			RBTID:     pl.slot.RBTID,
			Start:     req.Start,
			End:       end,
			Status:    model.StatusScheduled,
			Location:  req.Location,
			CreatedBy: req.Actor,
			UpdatedBy: req.Actor,
		})
		if err != nil {
			return err
		}
		reason := ""
		if pl.sel != nil {
			reason = pl.sel.Reason
		}
		tx.AppendEvent(model.ScheduleEvent{
			Type:      model.EventSessionCreated,
			SessionID: created.ID,
			ClientID:  created.ClientID,
			RBTID:     created.RBTID,
			Reason:    reason,
			NewValues: created.Snapshot(),
			Actor:     req.Actor,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, errAborted) {
			return *failure
		}
		s.log.Errorf("schedule session for client %s: %v", req.ClientID, err)
		return Result{Kind: ResultTransactionFailed, Err: err.Error()}
	}
	s.log.Infof("scheduled session %s: client %s with RBT %s at %s", created.ID, created.ClientID, created.RBTID, created.Start.Format(time.RFC3339))
	return Result{Kind: ResultSuccess, Session: &created, Selection: pl.sel, Warnings: pl.warnings}
}

// PreviewSession runs the full validation, selection and conflict pipeline
// against committed state without persisting anything. The returned session
// carries no id and does not exist in the store.
func (s *Scheduler) PreviewSession(ctx context.Context, req Request) Result {
	now := s.clk.Now()
	end := req.End
	if end.IsZero() {
		end = req.Start.Add(s.cfg.SessionDuration())
	}
	var violations []Violation
	if req.ClientID == "" {
		violations = append(violations, violationf(ViolationMissingClient, "client id is required"))
	}
	violations = append(violations, CheckWindow(s.cfg, now, req.Start, end)...)
	if len(violations) > 0 {
		return Result{Kind: ResultValidationFailed, Violations: violations}
	}

	pl, failure, err := s.resolvePlacement(ctx, s.store, now, req, end)
	if err != nil {
		s.log.Errorf("preview session for client %s: %v", req.ClientID, err)
		return Result{Kind: ResultTransactionFailed, Err: err.Error()}
	}
	if failure != nil {
		return *failure
	}
	preview := model.Session{
		ClientID: req.ClientID,
		RBTID:    pl.slot.RBTID,
		Start:    req.Start,
		End:      end,
		Status:   model.StatusScheduled,
		Location: req.Location,
	}
	return Result{Kind: ResultSuccess, Session: &preview, Selection: pl.sel, Warnings: pl.warnings}
}

// BulkScheduleSessions processes the requests independently: each request
// schedules in its own transaction and one failure never rolls back the
// others. With validateOnly set, every request is previewed against the
// same committed state and nothing is persisted.
func (s *Scheduler) BulkScheduleSessions(ctx context.Context, reqs []Request, validateOnly bool) BulkResult {
	out := BulkResult{ValidateOnly: validateOnly}
	for _, req := range reqs {
		var res Result
		if validateOnly {
			res = s.PreviewSession(ctx, req)
		} else {
			res = s.ScheduleSession(ctx, req)
		}
		if res.OK() {
			out.Scheduled = append(out.Scheduled, res)
		} else {
			out.Failed = append(out.Failed, res)
		}
	}
	s.log.Infof("bulk run: %d scheduled, %d failed, validate_only=%t", len(out.Scheduled), len(out.Failed), validateOnly)
	if s.bus != nil {
		s.bus.Publish(events.BulkCompleted{
			Requested:    len(reqs),
			Scheduled:    len(out.Scheduled),
			Failed:       len(out.Failed),
			ValidateOnly: validateOnly,
		})
	}
	return out
}

// ConfirmSession moves a scheduled session to confirmed.
func (s *Scheduler) ConfirmSession(ctx context.Context, id, actor string) Result {
	return s.transition(ctx, id, model.StatusConfirmed, model.EventSessionConfirmed, "", actor)
}

// CompleteSession marks an active session as completed, adding it to the
// history continuity scores are computed from.
func (s *Scheduler) CompleteSession(ctx context.Context, id, actor string) Result {
	return s.transition(ctx, id, model.StatusCompleted, model.EventSessionCompleted, "", actor)
}

// MarkNoShow records that the client did not attend. The slot is freed and
// the disruption is visible to analytics.
func (s *Scheduler) MarkNoShow(ctx context.Context, id, reason, actor string) Result {
	return s.transition(ctx, id, model.StatusNoShow, model.EventSessionNoShow, reason, actor)
}

func (s *Scheduler) transition(ctx context.Context, id string, target model.SessionStatus, evType model.EventType, reason, actor string) Result {
	var (
		updated model.Session
		from    model.SessionStatus
		failure *Result
	)
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		sess, err := tx.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				failure = &Result{Kind: ResultNotFound, Err: err.Error()}
				return errAborted
			}
			return err
		}
		if !sess.Status.CanTransitionTo(target) {
			v := violationf(ViolationIllegalTransition, "session %s cannot move from %s to %s", id, sess.Status, target)
			failure = &Result{Kind: ResultValidationFailed, Violations: []Violation{v}}
			return errAborted
		}
		from = sess.Status
		old := sess.Snapshot()
		sess.Status = target
		sess.UpdatedBy = actor
		updated, err = tx.UpdateSession(sess)
		if err != nil {
			return err
		}
		tx.AppendEvent(model.ScheduleEvent{
			Type:      evType,
			SessionID: updated.ID,
			ClientID:  updated.ClientID,
			RBTID:     updated.RBTID,
			Reason:    reason,
			OldValues: old,
			NewValues: updated.Snapshot(),
			Actor:     actor,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, errAborted) {
			return *failure
		}
		s.log.Errorf("transition session %s to %s: %v", id, target, err)
		return Result{Kind: ResultTransactionFailed, Err: err.Error()}
	}
	sessionTransitions.WithLabelValues(string(target)).Inc()
	if evType.IsDisruption() {
		if rec, ok := s.sink.(metrics.DisruptionRecorder); ok {
			if recErr := rec.RecordDisruption(metrics.DisruptionEvent{
				SessionID: updated.ID,
				ClientID:  updated.ClientID,
				RBTID:     updated.RBTID,
				EventType: string(evType),
				Reason:    reason,
				Time:      s.clk.Now(),
			}); recErr != nil {
				s.log.Warnf("record disruption event: %v", recErr)
			}
		}
	}
	if s.bus != nil {
		s.bus.Publish(events.SessionTransitioned{Session: updated, From: from, To: target})
	}
	s.notifySessionChange(updated, string(evType), reason)
	s.log.Infof("session %s moved from %s to %s", id, from, target)
	return Result{Kind: ResultSuccess, Session: &updated}
}

// SelectOptimalRBT evaluates the client's team for the window against
// committed state and returns the choice with its full candidate ranking.
func (s *Scheduler) SelectOptimalRBT(ctx context.Context, clientID string, start, end time.Time, location string) (Selection, error) {
	if end.IsZero() {
		end = start.Add(s.cfg.SessionDuration())
	}
	return selectRBT(ctx, s.store, s.cfg, s.clk.Now(), clientID, start, end, location)
}

// recordOutcome feeds the Prometheus collectors and the event sink.
func (s *Scheduler) recordOutcome(req Request, res Result, latency time.Duration) {
	sessionOutcomes.WithLabelValues(string(res.Kind)).Inc()
	scheduleLatency.WithLabelValues(string(res.Kind)).Observe(latency.Seconds())
	for _, c := range res.Conflicts {
		conflictsDetected.WithLabelValues(string(c.Type)).Inc()
	}
	for _, c := range res.Warnings {
		conflictsDetected.WithLabelValues(string(c.Type)).Inc()
	}

	ev := metrics.SessionEvent{
		ClientID: req.ClientID,
		RBTID:    req.RBTID,
		Outcome:  string(res.Kind),
		Start:    req.Start,
		End:      req.End,
		Latency:  latency,
		Time:     s.clk.Now(),
	}
	if res.Session != nil {
		ev.SessionID = res.Session.ID
		ev.RBTID = res.Session.RBTID
		ev.Start = res.Session.Start
		ev.End = res.Session.End
	}
	if res.Selection != nil {
		ev.Reason = res.Selection.Reason
		ev.Score = res.Selection.Score.Score
	}
	if err := s.sink.RecordSession(ev); err != nil {
		s.log.Warnf("record session event: %v", err)
	}
}

// notifySessionChange delivers the change notification and waits for the
// acknowledgment when a timeout is configured. Failures are logged, never
// propagated: the committed change stands.
func (s *Scheduler) notifySessionChange(sess model.Session, change, reason string) {
	if s.notifier == nil {
		return
	}
	msgID, err := s.notifier.PublishSessionChange(notify.SessionChange{
		SessionID: sess.ID,
		ClientID:  sess.ClientID,
		RBTID:     sess.RBTID,
		Change:    change,
		Start:     sess.Start,
		End:       sess.End,
		Reason:    reason,
	})
	if err != nil {
		notifyFailure.Inc()
		s.log.Warnf("publish notification for session %s: %v", sess.ID, err)
		return
	}
	notifySuccess.Inc()
	if s.ackTimeout <= 0 {
		return
	}
	ack, err := s.notifier.WaitForAck(msgID, s.ackTimeout)
	if err != nil {
		s.log.Warnf("notification ack for session %s: %v", sess.ID, err)
		return
	}
	if !ack {
		s.log.Warnf("notification %s for session %s was rejected", msgID, sess.ID)
	}
}
