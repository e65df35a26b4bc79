// Package metrics defines the sink contract for upload observability. Sinks
// record one UploadEvent per class row and, when they implement
// BatchRecorder, a BatchSummary per run. Implementations are registered by
// infra/metrics and selected from configuration with NewMetricsSink, which
// wraps several sinks in a MultiSink.
package metrics
