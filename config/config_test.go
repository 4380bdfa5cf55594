package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/novabehavior/abacore/core/auditlog"
)

//nolint:gocyclo
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `schedule:
  day_start_hour: 9
  day_end_hour: 17
  allowed_weekdays: ["monday", "wednesday"]
  session_duration_minutes: 120
  max_sessions_per_day: 3
  min_break_minutes: 15
recovery:
  max_alternatives: 3
analytics:
  trend_band: 0.3
metrics:
  prom_addr: ":9100"
  sinks:
    - type: "nop"
audit:
  backend: "sqlite"
  path: "events.db"
notify:
  enabled: true
  ack_timeout_seconds: 5
  mqtt:
    broker: "tcp://localhost:1883"
    client_id: "abacore"
    ack_topic: "care/+/ack"
api:
  addr: ":8088"
  token: "secret"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"day_start_hour", cfg.Schedule.DayStartHour, 9},
		{"day_end_hour", cfg.Schedule.DayEndHour, 17},
		{"allowed_weekdays", len(cfg.Schedule.AllowedWeekdays) == 2 && cfg.Schedule.AllowedWeekdays[1] == "wednesday", true},
		{"session_duration_minutes", cfg.Schedule.SessionDurationMinutes, 120},
		{"max_sessions_per_day", cfg.Schedule.MaxSessionsPerDay, 3},
		{"min_break_minutes", cfg.Schedule.MinBreakMinutes, 15},
		{"max_alternatives", cfg.Recovery.MaxAlternatives, 3},
		{"reschedule_search_days_default", cfg.Recovery.RescheduleSearchDays, 7},
		{"trend_band", cfg.Analytics.TrendBand, 0.3},
		{"top_reasons_default", cfg.Analytics.TopReasons, 5},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"prom_addr", cfg.Metrics.PromAddr, ":9100"},
		{"audit.backend", cfg.Audit.Backend, "sqlite"},
		{"audit.path", cfg.Audit.Path, "events.db"},
		{"notify.enabled", cfg.Notify.Enabled, true},
		{"ack_timeout_seconds", cfg.Notify.AckTimeoutSeconds, 5},
		{"broker", cfg.Notify.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.Notify.MQTT.ClientID, "abacore"},
		{"ack_topic", cfg.Notify.MQTT.AckTopic, "care/+/ack"},
		{"api.addr", cfg.API.Addr, ":8088"},
		{"api.token", cfg.API.Token, "secret"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `api:
  addr: ":8088"
  token: "file-secret"
audit:
  backend: "memory"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ABA_API__TOKEN", "env-secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.API.Token != "env-secret" {
		t.Errorf("env override not applied: %q", cfg.API.Token)
	}
	if cfg.API.Addr != ":8088" {
		t.Errorf("file value lost: %q", cfg.API.Addr)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load("config.toml")
	if err == nil || !strings.Contains(err.Error(), "unsupported config format") {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestLoadValidation(t *testing.T) {
	dir := t.TempDir()

	inverted := filepath.Join(dir, "inverted.yaml")
	data := `schedule:
  day_start_hour: 9
  day_end_hour: 5
audit:
  backend: "memory"
`
	if err := os.WriteFile(inverted, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(inverted); err == nil {
		t.Fatal("expected validation error for inverted business day")
	}

	noBroker := filepath.Join(dir, "nobroker.yaml")
	data = `notify:
  enabled: true
audit:
  backend: "memory"
`
	if err := os.WriteFile(noBroker, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(noBroker); err == nil {
		t.Fatal("expected validation error for enabled notify without broker")
	}
}

func TestAuditConfigNewStore(t *testing.T) {
	dir := t.TempDir()

	mem := AuditConfig{Backend: "memory"}
	st, err := mem.NewStore()
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	if _, ok := st.(*auditlog.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", st)
	}

	jl := AuditConfig{Backend: "jsonl", Path: filepath.Join(dir, "events.log")}
	st, err = jl.NewStore()
	if err != nil {
		t.Fatalf("jsonl store: %v", err)
	}
	if _, ok := st.(*auditlog.JSONLStore); !ok {
		t.Fatalf("expected jsonl store, got %T", st)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close jsonl: %v", err)
	}

	rot := AuditConfig{Backend: "jsonl", Path: filepath.Join(dir, "rotating.log"), MaxSizeMB: 1}
	st, err = rot.NewStore()
	if err != nil {
		t.Fatalf("rotating store: %v", err)
	}
	if _, ok := st.(*auditlog.RotatingJSONLStore); !ok {
		t.Fatalf("expected rotating store, got %T", st)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close rotating: %v", err)
	}

	bad := AuditConfig{Backend: "csv", Path: "x"}
	if _, err := bad.NewStore(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
