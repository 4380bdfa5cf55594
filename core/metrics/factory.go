package metrics

import "github.com/novabehavior/abacore/core/factory"

var sinkRegistry = factory.NewRegistry[EventSink]()

// RegisterEventSink adds an event sink factory identified by name.
func RegisterEventSink(name string, f factory.Factory[EventSink]) error {
	return sinkRegistry.Register(name, f)
}

// NewEventSink creates an EventSink from the provided configuration.
func NewEventSink(cfgs []factory.ModuleConfig) (EventSink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]EventSink, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}
