package metrics

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordWindow forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordWindow(ev WindowEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordWindow(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun forwards run summaries to sinks that support them.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	for _, s := range m.Sinks {
		if err := RecordRun(s, ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordSweepPoint forwards sweep points to sinks that support them.
func (m *MultiSink) RecordSweepPoint(p SweepPoint) error {
	for _, s := range m.Sinks {
		if err := RecordSweepPoint(s, p); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the sinks that hold connections.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
