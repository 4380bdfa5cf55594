package recovery

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
	"github.com/novabehavior/abacore/core/schedule"
	"github.com/novabehavior/abacore/core/store"
	"github.com/novabehavior/abacore/internal/eventbus"
)

// errAborted signals a business failure inside a transaction. The prepared
// result carries the details; the transaction rolls back.
var errAborted = errors.New("recovery: aborted")

// CancelRequest asks for one session to be cancelled.
type CancelRequest struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
	Actor     string `json:"actor,omitempty"`
	// FindAlternatives triggers a search for alternative placements of
	// the freed slot after the cancellation commits.
	FindAlternatives bool `json:"find_alternatives,omitempty"`
}

// CancelResult reports one cancellation outcome. Opportunities is populated
// only when the request asked for alternatives.
type CancelResult struct {
	Kind          schedule.ResultKind      `json:"kind"`
	Session       *model.Session           `json:"session,omitempty"`
	Opportunities []AlternativeOpportunity `json:"opportunities,omitempty"`
	Err           string                   `json:"error,omitempty"`
}

// OK reports whether the cancellation succeeded.
func (r CancelResult) OK() bool { return r.Kind == schedule.ResultSuccess }

// BulkCancelResult partitions the outcomes of a bulk cancellation run.
type BulkCancelResult struct {
	Successful []CancelResult `json:"successful"`
	Failed     []CancelResult `json:"failed"`
}

// Engine cancels sessions and searches freed slots for alternative
// placements and reschedule candidates.
type Engine struct {
	cfg        Config
	store      store.Store
	clk        clock.Clock
	log        logger.Logger
	sink       metrics.EventSink
	bus        *eventbus.Bus[events.Event]
	notifier   notify.Publisher
	ackTimeout time.Duration
}

// NewEngine creates a recovery engine. The bus may be nil when no observer
// is interested in cancellation events.
func NewEngine(cfg Config, st store.Store, clk clock.Clock, log logger.Logger, sink metrics.EventSink, bus *eventbus.Bus[events.Event]) (*Engine, error) {
	if st == nil || log == nil {
		return nil, fmt.Errorf("recovery: nil parameter provided to NewEngine")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("recovery: invalid config: %w", err)
	}
	if clk == nil {
		clk = clock.System()
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Engine{
		cfg:   cfg,
		store: st,
		clk:   clk,
		log:   log,
		sink:  sink,
		bus:   bus,
	}, nil
}

// SetNotifier configures the publisher informed after committed
// cancellations. ackTimeout bounds the wait for delivery acknowledgments;
// zero disables the wait.
func (e *Engine) SetNotifier(p notify.Publisher, ackTimeout time.Duration) {
	e.notifier = p
	e.ackTimeout = ackTimeout
}

// CancelSession cancels one session atomically: the status change and its
// audit event commit or roll back together. With FindAlternatives set, the
// freed slot is searched for alternative placements after the commit.
func (e *Engine) CancelSession(ctx context.Context, req CancelRequest) CancelResult {
	started := time.Now()
	res := e.cancelSession(ctx, req)
	cancelOutcomes.WithLabelValues(string(res.Kind)).Inc()
	cancelLatency.WithLabelValues(string(res.Kind)).Observe(time.Since(started).Seconds())
	if !res.OK() {
		return res
	}

	if rec, ok := e.sink.(metrics.DisruptionRecorder); ok {
		if err := rec.RecordDisruption(metrics.DisruptionEvent{
			SessionID: res.Session.ID,
			ClientID:  res.Session.ClientID,
			RBTID:     res.Session.RBTID,
			EventType: string(model.EventSessionCancelled),
			Reason:    req.Reason,
			Time:      e.clk.Now(),
		}); err != nil {
			e.log.Warnf("record disruption event: %v", err)
		}
	}

	if req.FindAlternatives {
		opps, err := e.FindAlternativeOpportunities(ctx, *res.Session, 0)
		if err != nil {
			e.log.Warnf("alternative search after cancelling %s: %v", res.Session.ID, err)
		} else {
			res.Opportunities = opps
		}
	}

	if e.bus != nil {
		e.bus.Publish(events.SessionCancelled{Session: *res.Session, Reason: req.Reason, Opportunities: len(res.Opportunities)})
		for _, o := range res.Opportunities {
			e.bus.Publish(events.OpportunityFound{ClientID: o.ClientID, RBTID: o.RBTID, Start: o.Start, Score: o.Score})
		}
	}
	e.notifyCancellation(*res.Session, req.Reason)
	return res
}

func (e *Engine) cancelSession(ctx context.Context, req CancelRequest) CancelResult {
	var (
		updated model.Session
		failure *CancelResult
	)
	err := e.store.RunInTransaction(ctx, func(tx store.Tx) error {
		sess, err := tx.FindByID(ctx, req.SessionID)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				failure = &CancelResult{Kind: schedule.ResultNotFound, Err: err.Error()}
				return errAborted
			}
			return err
		}
		if !sess.Status.CanTransitionTo(model.StatusCancelled) {
			failure = &CancelResult{
				Kind: schedule.ResultValidationFailed,
				Err:  fmt.Sprintf("session %s is %s and cannot be cancelled", sess.ID, sess.Status),
			}
			return errAborted
		}
		old := sess.Snapshot()
		sess.Status = model.StatusCancelled
		sess.CancellationReason = req.Reason
		sess.UpdatedBy = req.Actor
		updated, err = tx.UpdateSession(sess)
		if err != nil {
			return err
		}
		tx.AppendEvent(model.ScheduleEvent{
			Type:      model.EventSessionCancelled,
			SessionID: updated.ID,
			ClientID:  updated.ClientID,
			RBTID:     updated.RBTID,
			Reason:    req.Reason,
			OldValues: old,
			NewValues: updated.Snapshot(),
			Actor:     req.Actor,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, errAborted) {
			return *failure
		}
		e.log.Errorf("cancel session %s: %v", req.SessionID, err)
		return CancelResult{Kind: schedule.ResultTransactionFailed, Err: err.Error()}
	}
	e.log.Infof("cancelled session %s for client %s: %s", updated.ID, updated.ClientID, req.Reason)
	return CancelResult{Kind: schedule.ResultSuccess, Session: &updated}
}

// BulkCancelSessions cancels the sessions sequentially. Each cancellation is
// its own atomic unit; one failure never blocks the rest.
func (e *Engine) BulkCancelSessions(ctx context.Context, ids []string, reason, actor string, findAlternatives bool) BulkCancelResult {
	var out BulkCancelResult
	for _, id := range ids {
		res := e.CancelSession(ctx, CancelRequest{
			SessionID:        id,
			Reason:           reason,
			Actor:            actor,
			FindAlternatives: findAlternatives,
		})
		if res.OK() {
			out.Successful = append(out.Successful, res)
		} else {
			out.Failed = append(out.Failed, res)
		}
	}
	e.log.Infof("bulk cancel: %d cancelled, %d failed", len(out.Successful), len(out.Failed))
	return out
}

// notifyCancellation delivers the change notification. Failures are logged,
// never propagated: the committed cancellation stands.
func (e *Engine) notifyCancellation(sess model.Session, reason string) {
	if e.notifier == nil {
		return
	}
	msgID, err := e.notifier.PublishSessionChange(notify.SessionChange{
		SessionID: sess.ID,
		ClientID:  sess.ClientID,
		RBTID:     sess.RBTID,
		Change:    string(model.EventSessionCancelled),
		Start:     sess.Start,
		End:       sess.End,
		Reason:    reason,
	})
	if err != nil {
		e.log.Warnf("publish cancellation for session %s: %v", sess.ID, err)
		return
	}
	if e.ackTimeout <= 0 {
		return
	}
	ack, err := e.notifier.WaitForAck(msgID, e.ackTimeout)
	if err != nil {
		e.log.Warnf("cancellation ack for session %s: %v", sess.ID, err)
		return
	}
	if !ack {
		e.log.Warnf("cancellation %s for session %s was rejected", msgID, sess.ID)
	}
}
