package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/novabehavior/abacore/core/metrics"
	"github.com/novabehavior/abacore/infra/logger"
)

// InfluxSink writes scheduling events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.EventSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordSession writes one scheduling outcome as a line protocol point.
func (s *InfluxSink) RecordSession(ev coremetrics.SessionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("session_event").
		AddTag("client_id", ev.ClientID).
		AddTag("rbt_id", ev.RBTID).
		AddTag("outcome", ev.Outcome).
		AddTag("component", "scheduler").
		AddField("score", round3(ev.Score)).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		SetTime(ev.Time)
	if ev.SessionID != "" {
		p.AddTag("session_id", ev.SessionID)
	}
	if ev.Reason != "" {
		p.AddField("reason", ev.Reason)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordDisruption writes a cancellation, no-show or unavailability event.
func (s *InfluxSink) RecordDisruption(ev coremetrics.DisruptionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("disruption_event").
		AddTag("client_id", ev.ClientID).
		AddTag("rbt_id", ev.RBTID).
		AddTag("event_type", ev.EventType).
		AddTag("component", "recovery").
		AddField("reason", ev.Reason).
		SetTime(ev.Time)
	if ev.SessionID != "" {
		p.AddTag("session_id", ev.SessionID)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordOpportunity writes the outcome of an alternative-slot search.
func (s *InfluxSink) RecordOpportunity(ev coremetrics.OpportunityEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("opportunity_search").
		AddTag("client_id", ev.ClientID).
		AddTag("component", "recovery").
		AddField("candidates", ev.Candidates).
		AddField("best_score", round3(ev.BestScore)).
		AddField("elapsed_ms", round3(ev.Elapsed.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordContinuity writes a continuity score snapshot.
func (s *InfluxSink) RecordContinuity(ev coremetrics.ContinuityEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("continuity_score").
		AddTag("client_id", ev.ClientID).
		AddTag("rbt_id", ev.RBTID).
		AddTag("component", "scorer").
		AddField("score", round3(ev.Score)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
