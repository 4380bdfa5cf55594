package test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/novabehavior/abacore/core/recovery"
	"github.com/novabehavior/abacore/core/schedule"
	"github.com/novabehavior/abacore/core/store"
	"github.com/novabehavior/abacore/infra/logger"
	inframetrics "github.com/novabehavior/abacore/infra/metrics"
	"github.com/novabehavior/abacore/test/util"
)

func TestMetricsHTTPExposure(t *testing.T) {
	schedule.ResetMetrics(nil)
	recovery.ResetMetrics(nil)
	reg := prometheus.NewRegistry()
	schedule.MustRegisterMetrics(reg)
	recovery.MustRegisterMetrics(reg)
	sink, err := inframetrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	st := store.NewMemoryStore(nil, nil)
	scfg := schedule.Config{}
	scfg.SetDefaults()
	sched, err := schedule.NewScheduler(scfg, st, nil, logger.NopLogger{}, sink, nil)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	rcfg := recovery.Config{}
	rcfg.SetDefaults()
	eng, err := recovery.NewEngine(rcfg, st, nil, logger.NopLogger{}, sink, nil)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if err := util.SeedPractice(ctx, st, time.Now().UTC()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	start, end := util.NextBusinessSlot(2 * time.Hour)
	res := sched.ScheduleSession(ctx, schedule.Request{ClientID: "client-1", Start: start, End: end})
	if !res.OK() {
		t.Fatalf("schedule: %+v", res)
	}
	canc := eng.CancelSession(ctx, recovery.CancelRequest{SessionID: res.Session.ID, Reason: "Client sick"})
	if !canc.OK() {
		t.Fatalf("cancel: %+v", canc)
	}

	waitCtx, cancel := context.WithTimeout(ctx, util.MetricTimeout)
	defer cancel()
	if err := util.WaitForMetric(waitCtx, srv.URL+"/metrics", `schedule_outcomes_total{outcome="success"} 1`); err != nil {
		t.Fatalf("metric wait: %v", err)
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	out := string(body)
	for _, want := range []string{
		`session_events_total{outcome="success",rbt_id="rbt-1"} 1`,
		`cancel_outcomes_total{outcome="success"} 1`,
		`disruption_events_total{event_type="cancelled"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
