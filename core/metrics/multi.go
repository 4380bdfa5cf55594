package metrics

// MultiSink fans recorded events out to multiple sinks.
type MultiSink struct {
	Sinks []EventSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...EventSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSession forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordSession(ev SessionEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordSession(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordDisruption forwards disruption events to sinks that record them.
func (m *MultiSink) RecordDisruption(ev DisruptionEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(DisruptionRecorder); ok {
			if err := rec.RecordDisruption(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordOpportunity forwards opportunity events to sinks that record them.
func (m *MultiSink) RecordOpportunity(ev OpportunityEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(OpportunityRecorder); ok {
			if err := rec.RecordOpportunity(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordContinuity forwards continuity snapshots to sinks that record them.
func (m *MultiSink) RecordContinuity(ev ContinuityEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ContinuityRecorder); ok {
			if err := rec.RecordContinuity(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
