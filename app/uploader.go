// Package app drives a batch upload: every class row is resolved against
// the course layer, sent to the scheduler and recorded.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"golang.org/x/time/rate"

	"github.com/kilianp07/collabsched/core/ledger"
	coremetrics "github.com/kilianp07/collabsched/core/metrics"
	"github.com/kilianp07/collabsched/core/monitoring"
	"github.com/kilianp07/collabsched/core/session"
	"github.com/kilianp07/collabsched/infra/collab"
	"github.com/kilianp07/collabsched/infra/logger"
	"github.com/kilianp07/collabsched/infra/roster"
	"github.com/kilianp07/collabsched/internal/eventbus"
)

// ErrAborted is returned when a row fails and the run does not continue
// on error.
var ErrAborted = errors.New("upload aborted")

// Sender creates sessions on the scheduler.
type Sender interface {
	CreateSession(ctx context.Context, p session.Payload) (collab.Created, error)
}

// Uploader sends resolved sessions one at a time.
type Uploader struct {
	resolver        *session.Resolver
	sender          Sender
	store           ledger.Store
	sink            coremetrics.MetricsSink
	bus             *eventbus.Bus[coremetrics.UploadEvent]
	monitor         monitoring.Monitor
	limiter         *rate.Limiter
	log             logger.Logger
	out             io.Writer
	continueOnError bool
	dryRun          bool
	limit           int
	now             func() time.Time
	newRunID        func() string
}

// Option configures an Uploader.
type Option func(*Uploader)

func WithLedger(s ledger.Store) Option { return func(u *Uploader) { u.store = s } }

func WithMetrics(s coremetrics.MetricsSink) Option { return func(u *Uploader) { u.sink = s } }

// WithBus publishes one event per row on b.
func WithBus(b *eventbus.Bus[coremetrics.UploadEvent]) Option { return func(u *Uploader) { u.bus = b } }

// WithDelay spaces create requests at least d apart.
func WithDelay(d time.Duration) Option {
	return func(u *Uploader) {
		if d <= 0 {
			u.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		u.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithMonitor reports failed and invalid rows to m.
func WithMonitor(m monitoring.Monitor) Option { return func(u *Uploader) { u.monitor = m } }

func WithContinueOnError(on bool) Option { return func(u *Uploader) { u.continueOnError = on } }

// WithDryRun resolves and prints payloads without sending them.
func WithDryRun(on bool) Option { return func(u *Uploader) { u.dryRun = on } }

// WithLimit stops after n rows; zero means no limit.
func WithLimit(n int) Option { return func(u *Uploader) { u.limit = n } }

// WithOutput sets where guest URLs and dry-run payloads are printed.
func WithOutput(w io.Writer) Option { return func(u *Uploader) { u.out = w } }

func WithLogger(l logger.Logger) Option { return func(u *Uploader) { u.log = l } }

func WithClock(now func() time.Time) Option { return func(u *Uploader) { u.now = now } }

func withRunID(f func() string) Option { return func(u *Uploader) { u.newRunID = f } }

// NewUploader builds an uploader. sender may be nil for dry runs.
func NewUploader(r *session.Resolver, sender Sender, opts ...Option) *Uploader {
	u := &Uploader{
		resolver:        r,
		sender:          sender,
		store:           ledger.NopStore{},
		sink:            coremetrics.NopSink{},
		monitor:         monitoring.NopMonitor{},
		limiter:         rate.NewLimiter(rate.Every(time.Second), 1),
		log:             logger.NopLogger{},
		out:             io.Discard,
		continueOnError: true,
		now:             time.Now,
		newRunID:        uuid.NewString,
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Run processes classes in order. It returns the summary of what was done
// along with ErrAborted or the context error when the run stopped early.
func (u *Uploader) Run(ctx context.Context, course session.Layer, classes []session.Layer) (*Summary, error) {
	if u.sender == nil && !u.dryRun {
		return nil, errors.New("no sender configured")
	}
	sum := &Summary{RunID: u.newRunID()}
	start := u.now()
	u.log.Infow("upload started", map[string]any{"run_id": sum.RunID, "rows": len(classes), "dry_run": u.dryRun})

	var runErr error
	for i, row := range classes {
		if u.limit > 0 && i >= u.limit {
			u.log.Infof("limit of %d rows reached", u.limit)
			break
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		res := u.process(ctx, course, row)
		res.Row = i + 1
		u.record(sum, res)
		if res.Err != nil && !u.continueOnError {
			runErr = fmt.Errorf("%w at row %d (%s): %v", ErrAborted, res.Row, res.Name, res.Err)
			break
		}
	}

	sum.Duration = u.now().Sub(start)
	sum.finish()
	if br, ok := u.sink.(coremetrics.BatchRecorder); ok {
		if err := br.RecordBatch(sum.Batch(u.now())); err != nil {
			u.log.Warnf("record batch: %v", err)
		}
	}
	u.log.Infow("upload finished", map[string]any{
		"run_id":  sum.RunID,
		"created": sum.Created,
		"failed":  sum.Failed,
		"invalid": sum.Invalid,
		"skipped": sum.Skipped,
	})
	return sum, runErr
}

func (u *Uploader) process(ctx context.Context, course, row session.Layer) Result {
	res := Result{Name: cast.ToString(row[session.FieldName])}
	if roster.Excluded(row) {
		u.log.Debugf("skipping excluded class %s", res.Name)
		res.Status = coremetrics.StatusSkipped
		return res
	}

	resolved, err := u.resolver.Resolve(course, row)
	if err != nil {
		res.Status, res.Err = coremetrics.StatusInvalid, err
		u.log.Errorf("class %s: %v", res.Name, err)
		return res
	}
	payload := session.NewPayload(resolved)

	if u.dryRun {
		res.Status = coremetrics.StatusDryRun
		if err := u.print(payload); err != nil {
			res.Status, res.Err = coremetrics.StatusFailed, err
		}
		return res
	}

	if err := u.limiter.Wait(ctx); err != nil {
		res.Status, res.Err = coremetrics.StatusFailed, err
		return res
	}
	u.log.Infof("creating class %s", res.Name)
	begin := u.now()
	created, err := u.sender.CreateSession(ctx, payload)
	res.Latency = u.now().Sub(begin)
	if err != nil {
		res.Status, res.Err = coremetrics.StatusFailed, err
		u.log.Errorf("class %s: %v", res.Name, err)
		return res
	}
	res.Status = coremetrics.StatusCreated
	res.SessionID, res.GuestURL = created.ID, created.GuestURL
	u.log.Infow("session created", map[string]any{"name": res.Name, "id": created.ID, "guest_url": created.GuestURL})
	if created.GuestURL != "" {
		_, _ = fmt.Fprintln(u.out, created.GuestURL)
	}
	return res
}

func (u *Uploader) print(p session.Payload) error {
	enc := json.NewEncoder(u.out)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func (u *Uploader) record(sum *Summary, res Result) {
	sum.add(res)
	now := u.now()
	ev := coremetrics.UploadEvent{
		RunID:     sum.RunID,
		Name:      res.Name,
		SessionID: res.SessionID,
		GuestURL:  res.GuestURL,
		Status:    res.Status,
		Latency:   res.Latency,
		Time:      now,
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
		u.monitor.CaptureException(res.Err, map[string]string{
			"run_id": sum.RunID,
			"class":  res.Name,
			"status": string(res.Status),
			"row":    strconv.Itoa(res.Row),
		})
	}
	if err := u.sink.RecordUpload(ev); err != nil {
		u.log.Warnf("record metrics: %v", err)
	}
	if u.bus != nil {
		u.bus.Publish(ev)
	}
	rec := ledger.Record{
		Timestamp: now,
		RunID:     sum.RunID,
		Row:       res.Row,
		Name:      res.Name,
		Status:    res.Status,
		SessionID: res.SessionID,
		GuestURL:  res.GuestURL,
		Error:     ev.Error,
		LatencyMS: float64(res.Latency) / float64(time.Millisecond),
	}
	if err := u.store.Append(context.Background(), rec); err != nil {
		u.log.Warnf("ledger append: %v", err)
	}
}
