package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/collabsched/app"
	"github.com/kilianp07/collabsched/core/ledger"
	coremetrics "github.com/kilianp07/collabsched/core/metrics"
	"github.com/kilianp07/collabsched/infra/logger"
	_ "github.com/kilianp07/collabsched/infra/metrics"
	"github.com/kilianp07/collabsched/infra/monitoring"
	"github.com/kilianp07/collabsched/infra/mqtt"
	"github.com/kilianp07/collabsched/internal/eventbus"
)

var (
	tokenFile string
	limit     int
	dryRun    bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <classes.csv> <course.json>",
	Short: "Create one session per class row",
	Args:  cobra.ExactArgs(2),
	RunE:  upload,
}

func init() {
	uploadCmd.Flags().StringVarP(&tokenFile, "token-file", "t", "", "file holding the auth token (prompted when empty)")
	uploadCmd.Flags().IntVar(&limit, "limit", 0, "only process the first N rows")
	uploadCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print resolved sessions instead of creating them")
	rootCmd.AddCommand(uploadCmd)
}

func upload(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logger.New("upload")

	monitor, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return fmt.Errorf("init sentry: %w", err)
	}
	defer monitor.Flush(2 * time.Second)
	defer monitoring.Recover(monitor)

	course, classes, err := loadLayers(args[0], args[1])
	if err != nil {
		return err
	}
	resolver, err := newResolver()
	if err != nil {
		return err
	}

	opts := []app.Option{
		app.WithLogger(log),
		app.WithOutput(cmd.OutOrStdout()),
		app.WithDelay(cfg.Upload.Delay()),
		app.WithContinueOnError(cfg.Upload.ContinueOnError),
		app.WithLimit(limit),
		app.WithDryRun(dryRun),
		app.WithMonitor(monitor),
	}
	var sender app.Sender
	if !dryRun {
		client, err := connect(ctx, cmd, tokenFile)
		if err != nil {
			return err
		}
		sender = client

		store, err := ledger.Open(cfg.Upload.LedgerPath, cfg.Upload.LedgerMaxSizeMB, cfg.Upload.LedgerMaxBackups)
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		defer func() { _ = store.Close() }()
		opts = append(opts, app.WithLedger(store))
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return err
	}
	opts = append(opts, app.WithMetrics(sink))

	bus := eventbus.New[coremetrics.UploadEvent]()
	var wg sync.WaitGroup
	if cfg.Notify.Enabled() && !dryRun {
		notifier, err := mqtt.NewNotifier(cfg.Notify)
		if err != nil {
			log.Warnf("notifications disabled: %v", err)
		} else {
			defer notifier.Disconnect()
			events := bus.Subscribe()
			wg.Add(1)
			go func() {
				defer wg.Done()
				notifier.Run(context.WithoutCancel(ctx), events)
			}()
		}
	}
	opts = append(opts, app.WithBus(bus))

	sum, runErr := app.NewUploader(resolver, sender, opts...).Run(ctx, course, classes)
	bus.Close()
	wg.Wait()
	if n := bus.Dropped(); n > 0 {
		log.Warnf("%d notifications dropped", n)
	}
	if f, ok := sink.(coremetrics.Flusher); ok {
		if err := f.Flush(); err != nil {
			log.Warnf("flush metrics: %v", err)
		}
	}
	if sum != nil {
		printSummary(cmd, sum)
	}
	if runErr != nil {
		return runErr
	}
	if sum.Failures() > 0 {
		return fmt.Errorf("%d of %d classes failed", sum.Failures(), len(sum.Results))
	}
	return nil
}

func printSummary(cmd *cobra.Command, s *app.Summary) {
	w := cmd.ErrOrStderr()
	_, _ = fmt.Fprintf(w, "run %s: %d created, %d failed, %d invalid, %d skipped", s.RunID, s.Created, s.Failed, s.Invalid, s.Skipped)
	if s.DryRun > 0 {
		_, _ = fmt.Fprintf(w, ", %d resolved (dry run)", s.DryRun)
	}
	_, _ = fmt.Fprintln(w)
	if s.MeanLatency > 0 {
		_, _ = fmt.Fprintf(w, "latency: mean %s, stddev %s, p95 %s\n", s.MeanLatency, s.StdDevLatency, s.P95Latency)
	}
	for _, r := range s.Results {
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "  row %d %s: %s: %v\n", r.Row, r.Name, r.Status, r.Err)
		}
	}
}
