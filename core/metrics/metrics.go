package metrics

import "time"

// Status is the outcome of one class row.
type Status string

const (
	StatusCreated Status = "created"
	StatusFailed  Status = "failed"
	StatusInvalid Status = "invalid"
	StatusSkipped Status = "skipped"
	StatusDryRun  Status = "dry_run"
)

// UploadEvent describes what happened to one class row.
type UploadEvent struct {
	RunID     string
	Name      string
	SessionID string
	GuestURL  string
	Status    Status
	// Latency is the duration of the create request; zero when no request
	// was sent.
	Latency time.Duration
	Error   string
	Time    time.Time
}

// MetricsSink records upload outcomes for observability purposes.
type MetricsSink interface {
	RecordUpload(ev UploadEvent) error
}

// BatchSummary aggregates one run.
type BatchSummary struct {
	RunID         string
	Created       int
	Failed        int
	Invalid       int
	Skipped       int
	MeanLatency   time.Duration
	StdDevLatency time.Duration
	P95Latency    time.Duration
	Duration      time.Duration
	Time          time.Time
}

// BatchRecorder records the summary of a finished run.
type BatchRecorder interface {
	RecordBatch(s BatchSummary) error
}

// Flusher is implemented by sinks that buffer and must be flushed (or
// written out) when the run ends.
type Flusher interface {
	Flush() error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordUpload(UploadEvent) error  { return nil }
func (NopSink) RecordBatch(BatchSummary) error  { return nil }
