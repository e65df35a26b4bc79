package app

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	coremetrics "github.com/kilianp07/collabsched/core/metrics"
)

// Result is the outcome of one class row.
type Result struct {
	Row       int
	Name      string
	Status    coremetrics.Status
	SessionID string
	GuestURL  string
	Latency   time.Duration
	Err       error
}

// Summary aggregates a run.
type Summary struct {
	RunID   string
	Results []Result

	Created int
	Failed  int
	Invalid int
	Skipped int
	DryRun  int

	MeanLatency   time.Duration
	StdDevLatency time.Duration
	P95Latency    time.Duration
	Duration      time.Duration
}

func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	switch r.Status {
	case coremetrics.StatusCreated:
		s.Created++
	case coremetrics.StatusFailed:
		s.Failed++
	case coremetrics.StatusInvalid:
		s.Invalid++
	case coremetrics.StatusSkipped:
		s.Skipped++
	case coremetrics.StatusDryRun:
		s.DryRun++
	}
}

// finish computes latency statistics over the requests that were sent.
func (s *Summary) finish() {
	var xs []float64
	for _, r := range s.Results {
		if r.Latency > 0 {
			xs = append(xs, float64(r.Latency))
		}
	}
	if len(xs) == 0 {
		return
	}
	sort.Float64s(xs)
	s.MeanLatency = time.Duration(stat.Mean(xs, nil))
	if len(xs) > 1 {
		s.StdDevLatency = time.Duration(stat.StdDev(xs, nil))
	}
	s.P95Latency = time.Duration(stat.Quantile(0.95, stat.Empirical, xs, nil))
}

// Failures counts rows that were neither sent successfully nor skipped on
// purpose.
func (s *Summary) Failures() int { return s.Failed + s.Invalid }

// Batch converts the summary for metrics sinks.
func (s *Summary) Batch(at time.Time) coremetrics.BatchSummary {
	return coremetrics.BatchSummary{
		RunID:         s.RunID,
		Created:       s.Created,
		Failed:        s.Failed,
		Invalid:       s.Invalid,
		Skipped:       s.Skipped,
		MeanLatency:   s.MeanLatency,
		StdDevLatency: s.StdDevLatency,
		P95Latency:    s.P95Latency,
		Duration:      s.Duration,
		Time:          at,
	}
}
