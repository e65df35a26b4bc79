package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/collabsched/core/metrics"
)

// PromSink records upload outcomes in Prometheus metrics. A batch job has
// no scrape endpoint, so Flush writes the registry to a node_exporter
// textfile when a path is configured.
type PromSink struct {
	reg      *prometheus.Registry
	textfile string

	sessions *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	lastRun  *prometheus.GaugeVec
	duration prometheus.Gauge
}

// NewPromSink registers upload metrics on a fresh registry.
func NewPromSink(textfile string) (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.NewRegistry(), textfile)
}

// NewPromSinkWithRegistry registers metrics on the provided registry.
func NewPromSinkWithRegistry(reg *prometheus.Registry, textfile string) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &PromSink{
		reg:      reg,
		textfile: textfile,
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collab_sessions_total",
			Help: "Class rows processed, by outcome",
		}, []string{"status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "collab_request_duration_seconds",
			Help:    "Duration of session creation requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "collab_last_run_sessions",
			Help: "Outcome counts of the last completed run",
		}, []string{"status"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collab_last_run_duration_seconds",
			Help: "Wall time of the last completed run",
		}),
	}
	for _, c := range []prometheus.Collector{s.sessions, s.latency, s.lastRun, s.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return s, nil
}

// Registry exposes the registry holding the upload metrics.
func (s *PromSink) Registry() *prometheus.Registry { return s.reg }

// RecordUpload counts the event and observes its request latency.
func (s *PromSink) RecordUpload(ev coremetrics.UploadEvent) error {
	status := string(ev.Status)
	s.sessions.WithLabelValues(status).Inc()
	if ev.Latency > 0 {
		s.latency.WithLabelValues(status).Observe(ev.Latency.Seconds())
	}
	return nil
}

// RecordBatch sets the last-run gauges.
func (s *PromSink) RecordBatch(sum coremetrics.BatchSummary) error {
	s.lastRun.WithLabelValues(string(coremetrics.StatusCreated)).Set(float64(sum.Created))
	s.lastRun.WithLabelValues(string(coremetrics.StatusFailed)).Set(float64(sum.Failed))
	s.lastRun.WithLabelValues(string(coremetrics.StatusInvalid)).Set(float64(sum.Invalid))
	s.lastRun.WithLabelValues(string(coremetrics.StatusSkipped)).Set(float64(sum.Skipped))
	s.duration.Set(sum.Duration.Seconds())
	return nil
}

// Flush writes the registry to the textfile, if one is configured.
func (s *PromSink) Flush() error {
	if s.textfile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(s.textfile, s.reg); err != nil {
		return fmt.Errorf("write prometheus textfile: %w", err)
	}
	return nil
}
