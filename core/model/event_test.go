package model

import "testing"

func TestEventTypeIsDisruption(t *testing.T) {
	disruptions := []EventType{EventSessionCancelled, EventSessionRescheduled, EventSessionNoShow, EventRBTUnavailable}
	for _, et := range disruptions {
		if !et.IsDisruption() {
			t.Fatalf("%s should count as a disruption", et)
		}
	}
	normal := []EventType{EventSessionCreated, EventSessionUpdated, EventSessionConfirmed, EventSessionCompleted}
	for _, et := range normal {
		if et.IsDisruption() {
			t.Fatalf("%s should not count as a disruption", et)
		}
	}
}
