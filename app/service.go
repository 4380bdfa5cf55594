package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apireports "github.com/novabehavior/abacore/api/reports"
	apisessions "github.com/novabehavior/abacore/api/sessions"
	"github.com/novabehavior/abacore/config"
	"github.com/novabehavior/abacore/core/analytics"
	"github.com/novabehavior/abacore/core/auditlog"
	"github.com/novabehavior/abacore/core/clock"
	"github.com/novabehavior/abacore/core/events"
	coremetrics "github.com/novabehavior/abacore/core/metrics"
	"github.com/novabehavior/abacore/core/recovery"
	"github.com/novabehavior/abacore/core/schedule"
	"github.com/novabehavior/abacore/core/store"
	"github.com/novabehavior/abacore/infra/logger"
	inframetrics "github.com/novabehavior/abacore/infra/metrics"
	"github.com/novabehavior/abacore/infra/notify"
	"github.com/novabehavior/abacore/internal/eventbus"
)

// Service wires the scheduler, recovery engine and reporter onto one store
// and audit log, and serves the HTTP API.
type Service struct {
	Scheduler *schedule.Scheduler
	Recovery  *recovery.Engine
	Reporter  *analytics.Reporter
	Scorer    *schedule.ContinuityScorer
	Audit     auditlog.Store

	bus      *eventbus.Bus[events.Event]
	log      logger.Logger
	apiAddr  string
	apiToken string
	promAddr string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	audit, err := cfg.Audit.NewStore()
	if err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}
	st := store.NewMemoryStore(audit, clock.System())

	sink, err := coremetrics.NewEventSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}

	bus := events.NewBus()

	sched, err := schedule.NewScheduler(cfg.Schedule, st, nil, logg, sink, bus)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	eng, err := recovery.NewEngine(cfg.Recovery, st, nil, logg, sink, bus)
	if err != nil {
		return nil, fmt.Errorf("recovery engine: %w", err)
	}
	rep, err := analytics.NewReporter(cfg.Analytics, audit, st, nil, logg)
	if err != nil {
		return nil, fmt.Errorf("reporter: %w", err)
	}
	scorer, err := schedule.NewContinuityScorer(st, nil)
	if err != nil {
		return nil, fmt.Errorf("continuity scorer: %w", err)
	}
	scorer.SetSink(sink)

	if cfg.Notify.Enabled {
		pub, err := notify.NewPahoPublisher(cfg.Notify.MQTT)
		if err != nil {
			return nil, fmt.Errorf("notify publisher: %w", err)
		}
		ackTimeout := time.Duration(cfg.Notify.AckTimeoutSeconds) * time.Second
		sched.SetNotifier(pub, ackTimeout)
		eng.SetNotifier(pub, ackTimeout)
	}

	return &Service{
		Scheduler: sched,
		Recovery:  eng,
		Reporter:  rep,
		Scorer:    scorer,
		Audit:     audit,
		bus:       bus,
		log:       logg,
		apiAddr:   cfg.API.Addr,
		apiToken:  cfg.API.Token,
		promAddr:  cfg.Metrics.PromAddr,
	}, nil
}

// Handler assembles the HTTP API routes.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/sessions", apisessions.NewScheduleHandler(s.Scheduler, s.apiToken))
	mux.Handle("/api/sessions/bulk", apisessions.NewBulkScheduleHandler(s.Scheduler, s.apiToken))
	mux.Handle("/api/sessions/cancel", apisessions.NewCancelHandler(s.Recovery, s.apiToken))
	mux.Handle("/api/sessions/cancel/bulk", apisessions.NewBulkCancelHandler(s.Recovery, s.apiToken))
	mux.Handle("/api/sessions/", apisessions.NewTransitionHandler(s.Scheduler, s.apiToken))
	mux.Handle("/api/reports/frequency", apireports.NewFrequencyHandler(s.Reporter, s.apiToken))
	mux.Handle("/api/reports/clients/", apireports.NewClientProfileHandler(s.Reporter, s.apiToken))
	mux.Handle("/api/reports/rbts/", apireports.NewRBTProfileHandler(s.Reporter, s.apiToken))
	mux.Handle("/api/audit/", apireports.NewAuditTrailHandler(s.Reporter, s.apiToken))
	return mux
}

// Run serves the HTTP API and the Prometheus endpoint until the context is
// cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.promAddr != "" {
		go func() {
			if err := inframetrics.StartPromServer(ctx, s.promAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	srv := &http.Server{Addr: s.apiAddr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
	}()
	s.log.Infof("api listening on %s", s.apiAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Bus exposes the schedule event stream for observers.
func (s *Service) Bus() *eventbus.Bus[events.Event] { return s.bus }

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	return s.Audit.Close()
}
