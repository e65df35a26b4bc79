// Package ledger keeps an append-only record of every class row the
// uploader handled, so a run can be audited or a created session found
// again for deletion.
package ledger

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/kilianp07/collabsched/core/metrics"
)

// Record captures the outcome of one class row.
type Record struct {
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Row       int            `json:"row,omitempty"`
	Name      string         `json:"name"`
	Status    metrics.Status `json:"status"`
	SessionID string         `json:"session_id,omitempty"`
	GuestURL  string         `json:"guest_url,omitempty"`
	Error     string         `json:"error,omitempty"`
	LatencyMS float64        `json:"latency_ms,omitempty"`
}

// Query filters records. Zero fields match everything.
type Query struct {
	Start  time.Time
	End    time.Time
	RunID  string
	Name   string
	Status metrics.Status
}

func (q Query) match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.Name != "" && r.Name != q.Name {
		return false
	}
	return q.Status == "" || r.Status == q.Status
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Open returns a rotating store when maxSizeMB is positive and a plain
// JSONL file otherwise. An empty path disables the ledger.
func Open(path string, maxSizeMB, maxBackups int) (Store, error) {
	switch {
	case path == "":
		return NopStore{}, nil
	case maxSizeMB > 0:
		return NewRotatingJSONLStore(path, maxSizeMB, maxBackups)
	default:
		return NewJSONLStore(path)
	}
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error          { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }

func scan(r io.Reader, q Query, out []Record) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		if q.match(rec) {
			out = append(out, rec)
		}
	}
	return out, scanner.Err()
}
