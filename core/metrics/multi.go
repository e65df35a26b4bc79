package metrics

import "errors"

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordUpload forwards the event to every sink, returning the first error
// encountered.
func (m *MultiSink) RecordUpload(ev UploadEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordUpload(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordBatch forwards the summary to sinks that support it.
func (m *MultiSink) RecordBatch(sum BatchSummary) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(BatchRecorder); ok {
			if err := rec.RecordBatch(sum); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes every sink that buffers and joins their errors.
func (m *MultiSink) Flush() error {
	var errs []error
	for _, s := range m.Sinks {
		if f, ok := s.(Flusher); ok {
			errs = append(errs, f.Flush())
		}
	}
	return errors.Join(errs...)
}
