package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/collabsched/core/ledger"
	coremetrics "github.com/kilianp07/collabsched/core/metrics"
	"github.com/kilianp07/collabsched/core/session"
	"github.com/kilianp07/collabsched/infra/collab"
	"github.com/kilianp07/collabsched/internal/eventbus"
)

type fakeSender struct {
	mu    sync.Mutex
	names []string
	fail  map[string]error
}

func (f *fakeSender) CreateSession(_ context.Context, p session.Payload) (collab.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, p.Name())
	if err := f.fail[p.Name()]; err != nil {
		return collab.Created{}, err
	}
	id := fmt.Sprintf("id-%d", len(f.names))
	return collab.Created{ID: id, GuestURL: "https://example.com/guest/" + id}, nil
}

type recordingSink struct {
	events []coremetrics.UploadEvent
	batch  *coremetrics.BatchSummary
}

func (r *recordingSink) RecordUpload(ev coremetrics.UploadEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) RecordBatch(s coremetrics.BatchSummary) error {
	r.batch = &s
	return nil
}

type recordingMonitor struct {
	errs []error
	tags []map[string]string
}

func (m *recordingMonitor) CaptureException(err error, tags map[string]string) {
	m.errs = append(m.errs, err)
	m.tags = append(m.tags, tags)
}
func (m *recordingMonitor) Flush(time.Duration) bool { return true }

type memStore struct{ recs []ledger.Record }

func (m *memStore) Append(_ context.Context, r ledger.Record) error {
	m.recs = append(m.recs, r)
	return nil
}
func (m *memStore) Query(context.Context, ledger.Query) ([]ledger.Record, error) { return m.recs, nil }
func (m *memStore) Close() error                                                  { return nil }

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	t := time.Date(2021, 2, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(step)
		return t
	}
}

func newResolver(t *testing.T) *session.Resolver {
	t.Helper()
	n, err := session.NewNormalizer(session.DefaultTimezone, false)
	require.NoError(t, err)
	return session.NewResolver(n, session.WithClock(func() time.Time {
		return time.Date(2021, 2, 1, 12, 0, 0, 0, time.UTC)
	}))
}

func class(name string) session.Layer {
	return session.Layer{
		"name":      name,
		"startTime": "2021-02-17 09:00",
		"endTime":   "2021-02-17 11:00",
	}
}

type harness struct {
	sender *fakeSender
	sink   *recordingSink
	store  *memStore
	out    *bytes.Buffer
}

func newHarness(t *testing.T, opts ...Option) (*Uploader, *harness) {
	t.Helper()
	h := &harness{sender: &fakeSender{fail: map[string]error{}}, sink: &recordingSink{}, store: &memStore{}, out: &bytes.Buffer{}}
	base := []Option{
		WithLedger(h.store),
		WithMetrics(h.sink),
		WithDelay(0),
		WithOutput(h.out),
		WithClock(steppingClock(10 * time.Millisecond)),
		withRunID(func() string { return "run-1" }),
	}
	return NewUploader(newResolver(t), h.sender, append(base, opts...)...), h
}

func TestRunCreatesEverySession(t *testing.T) {
	u, h := newHarness(t)
	course := session.Layer{"description": "COMP1511"}

	sum, err := u.Run(context.Background(), course, []session.Layer{class("T09A"), class("T10B")})
	require.NoError(t, err)

	assert.Equal(t, []string{"T09A", "T10B"}, h.sender.names)
	assert.Equal(t, 2, sum.Created)
	assert.Zero(t, sum.Failures())
	assert.Equal(t, "run-1", sum.RunID)
	assert.Equal(t, "https://example.com/guest/id-1\nhttps://example.com/guest/id-2\n", h.out.String())

	require.Len(t, h.store.recs, 2)
	assert.Equal(t, ledger.Record{
		Timestamp: h.store.recs[0].Timestamp,
		RunID:     "run-1",
		Row:       1,
		Name:      "T09A",
		Status:    coremetrics.StatusCreated,
		SessionID: "id-1",
		GuestURL:  "https://example.com/guest/id-1",
		LatencyMS: 10,
	}, h.store.recs[0])

	require.Len(t, h.sink.events, 2)
	assert.Equal(t, coremetrics.StatusCreated, h.sink.events[1].Status)
	require.NotNil(t, h.sink.batch)
	assert.Equal(t, 2, h.sink.batch.Created)
}

func TestRunLatencyStatistics(t *testing.T) {
	u, _ := newHarness(t)
	sum, err := u.Run(context.Background(), nil, []session.Layer{class("A"), class("B"), class("C")})
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, sum.MeanLatency)
	assert.Equal(t, 10*time.Millisecond, sum.P95Latency)
	assert.Zero(t, sum.StdDevLatency)
	assert.Greater(t, sum.Duration, time.Duration(0))
}

func TestRunContinuesPastInvalidRows(t *testing.T) {
	u, h := newHarness(t)
	broken := class("BROKEN")
	delete(broken, "endTime")

	sum, err := u.Run(context.Background(), nil, []session.Layer{class("A"), broken, class("B")})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, h.sender.names)
	assert.Equal(t, 2, sum.Created)
	assert.Equal(t, 1, sum.Invalid)
	assert.Equal(t, 1, sum.Failures())

	res := sum.Results[1]
	assert.Equal(t, coremetrics.StatusInvalid, res.Status)
	assert.True(t, errors.Is(res.Err, session.ErrIncompleteConfig))
	assert.Contains(t, h.store.recs[1].Error, "endTime")
}

func TestRunAbortsWhenConfigured(t *testing.T) {
	u, h := newHarness(t, WithContinueOnError(false))
	h.sender.fail["A"] = errors.New("400 Bad Request")

	sum, err := u.Run(context.Background(), nil, []session.Layer{class("A"), class("B")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAborted))
	assert.Contains(t, err.Error(), "row 1 (A)")
	assert.Equal(t, []string{"A"}, h.sender.names)
	assert.Equal(t, 1, sum.Failed)
	assert.Len(t, sum.Results, 1)
}

func TestRunSkipsExcludedRows(t *testing.T) {
	u, h := newHarness(t)
	skipped := class("SKIP")
	skipped["exclude"] = "x"
	kept := class("KEEP")
	kept["exclude"] = "false"

	sum, err := u.Run(context.Background(), nil, []session.Layer{skipped, kept})
	require.NoError(t, err)
	assert.Equal(t, []string{"KEEP"}, h.sender.names)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, coremetrics.StatusSkipped, h.store.recs[0].Status)
}

func TestRunDryRun(t *testing.T) {
	out := &bytes.Buffer{}
	u := NewUploader(newResolver(t), nil, WithDryRun(true), WithOutput(out), WithDelay(0))

	sum, err := u.Run(context.Background(), session.Layer{"boundaryTime": 30}, []session.Layer{class("T09A")})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.DryRun)

	var body map[string]any
	require.NoError(t, json.NewDecoder(strings.NewReader(out.String())).Decode(&body))
	assert.Equal(t, "T09A", body["name"])
	assert.Equal(t, float64(30), body["boundaryTime"])
	assert.Equal(t, "S", body["occurrenceType"])
}

func TestRunWithoutSender(t *testing.T) {
	u := NewUploader(newResolver(t), nil)
	_, err := u.Run(context.Background(), nil, []session.Layer{class("A")})
	assert.Error(t, err)
}

func TestRunLimit(t *testing.T) {
	u, h := newHarness(t, WithLimit(2))
	sum, err := u.Run(context.Background(), nil, []session.Layer{class("A"), class("B"), class("C")})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, h.sender.names)
	assert.Len(t, sum.Results, 2)
}

func TestRunStopsOnCancel(t *testing.T) {
	u, h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := u.Run(ctx, nil, []session.Layer{class("A")})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, h.sender.names)
}

func TestRunPacesRequests(t *testing.T) {
	sender := &fakeSender{fail: map[string]error{}}
	u := NewUploader(newResolver(t), sender, WithDelay(50*time.Millisecond))

	start := time.Now()
	_, err := u.Run(context.Background(), nil, []session.Layer{class("A"), class("B"), class("C")})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestRunPublishesEvents(t *testing.T) {
	bus := eventbus.New[coremetrics.UploadEvent]()
	sub := bus.Subscribe()
	u, h := newHarness(t, WithBus(bus))
	h.sender.fail["B"] = errors.New("boom")

	_, err := u.Run(context.Background(), nil, []session.Layer{class("A"), class("B")})
	require.NoError(t, err)

	first := <-sub
	second := <-sub
	assert.Equal(t, coremetrics.StatusCreated, first.Status)
	assert.Equal(t, "https://example.com/guest/id-1", first.GuestURL)
	assert.Equal(t, coremetrics.StatusFailed, second.Status)
	assert.Equal(t, "boom", second.Error)
}

func TestRunReportsFailuresToMonitor(t *testing.T) {
	mon := &recordingMonitor{}
	u, h := newHarness(t, WithMonitor(mon))
	h.sender.fail["B"] = errors.New("boom")

	_, err := u.Run(context.Background(), nil, []session.Layer{class("A"), class("B")})
	require.NoError(t, err)
	require.Len(t, mon.errs, 1)
	assert.Equal(t, map[string]string{"run_id": "run-1", "class": "B", "status": "failed", "row": "2"}, mon.tags[0])
}
