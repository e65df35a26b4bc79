package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/collabsched/core/metrics"
	"github.com/kilianp07/collabsched/infra/logger"
)

// InfluxSink writes upload events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails, so an unreachable database never
// blocks an upload run.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordUpload writes one session_upload point.
func (s *InfluxSink) RecordUpload(ev coremetrics.UploadEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("session_upload").
		AddTag("run_id", ev.RunID).
		AddTag("status", string(ev.Status)).
		AddTag("component", "uploader").
		AddField("name", ev.Name).
		AddField("latency_ms", ev.Latency.Seconds()*1000).
		SetTime(ev.Time)
	if ev.SessionID != "" {
		p = p.AddField("session_id", ev.SessionID)
	}
	if ev.Error != "" {
		p = p.AddField("error", ev.Error)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordBatch writes one upload_batch point with the run totals.
func (s *InfluxSink) RecordBatch(sum coremetrics.BatchSummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("upload_batch").
		AddTag("run_id", sum.RunID).
		AddField("created", sum.Created).
		AddField("failed", sum.Failed).
		AddField("invalid", sum.Invalid).
		AddField("skipped", sum.Skipped).
		AddField("mean_latency_ms", sum.MeanLatency.Seconds()*1000).
		AddField("p95_latency_ms", sum.P95Latency.Seconds()*1000).
		AddField("duration_s", sum.Duration.Seconds()).
		SetTime(sum.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Flush closes the client; the sink is not used after the run ends.
func (s *InfluxSink) Flush() error {
	s.client.Close()
	return nil
}
