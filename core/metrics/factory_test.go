package metrics

import (
	"testing"

	"github.com/novabehavior/abacore/core/factory"
)

func TestNewEventSinkDefaultsToNop(t *testing.T) {
	s, err := NewEventSink(nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := s.(NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}
}

func TestNewEventSinkMulti(t *testing.T) {
	if err := RegisterEventSink("counting", func(map[string]any) (EventSink, error) {
		return &recordSink{}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	s, err := NewEventSink([]factory.ModuleConfig{{Type: "counting"}, {Type: "counting"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m, ok := s.(*MultiSink)
	if !ok {
		t.Fatalf("expected MultiSink, got %T", s)
	}
	if len(m.Sinks) != 2 {
		t.Fatalf("expected 2 sinks, got %d", len(m.Sinks))
	}
	if _, err := NewEventSink([]factory.ModuleConfig{{Type: "missing"}}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
