package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rnks2003/proj-sitesense/internal/model"
)

// BatchResult pairs a target URL with the outcome of its scan.
type BatchResult struct {
	// Target is the URL as it was submitted.
	Target string

	// Record is the terminal scan record, nil when the scan never
	// produced one (validation or creation failure).
	Record *model.ScanRecord

	// Err is the scan's error, nil on success.
	Err error
}

// BatchRunner drives multiple targets through the scan lifecycle
// concurrently. It uses errgroup to manage goroutines and respect the
// concurrency limit.
//
// Design decision: We use a separate BatchRunner rather than adding batch
// functionality to Controller because:
// 1. It keeps the Controller focused on a single active scan
// 2. Each target gets its own Controller, so generation tokens stay per-scan
// 3. It allows different batch strategies later (rate limiting, retries)
type BatchRunner struct {
	// controllerFactory creates a fresh Controller for each target.
	// We use a factory so controller state never leaks between scans.
	controllerFactory func() *Controller

	// concurrency is the maximum number of scans in flight at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores outcomes indexed by target position.
	// Access is synchronized via mutex.
	results []BatchResult
	mu      sync.Mutex
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchRunner) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent scans.
// Default is 3 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchRunner) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchRunner creates a new BatchRunner.
//
// The controllerFactory is called once per target so every scan runs on a
// fresh Controller with its own generation counter and sink.
func NewBatchRunner(controllerFactory func() *Controller, opts ...BatchOption) *BatchRunner {
	br := &BatchRunner{
		controllerFactory: controllerFactory,
		concurrency:       3,
	}

	for _, opt := range opts {
		opt(br)
	}

	if br.logger == nil {
		br.logger = slog.Default()
	}

	return br
}

// Run scans all targets concurrently and returns their outcomes in input
// order. A failed target never aborts the others; its error is recorded
// in its BatchResult. The error return reports only batch-level
// cancellation.
func (br *BatchRunner) Run(ctx context.Context, targets []string) ([]BatchResult, error) {
	br.logger.Info("starting batch scan",
		"total_targets", len(targets),
		"concurrency", br.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain input order
	br.results = make([]BatchResult, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(br.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			br.logger.Info("scanning target",
				"target", target,
				"index", i+1,
				"total", len(targets),
			)

			controller := br.controllerFactory()
			record, err := controller.Create(ctx, target)

			// Store the outcome regardless of error so the batch
			// report covers every target.
			br.mu.Lock()
			br.results[i] = BatchResult{Target: target, Record: record, Err: err}
			br.mu.Unlock()

			if err != nil {
				br.logger.Warn("scan failed",
					"target", target,
					"error", err,
				)
				// Don't return the error to errgroup - we want the
				// other scans to continue.
				return nil
			}

			br.logger.Info("scan completed",
				"target", target,
				"scan_id", record.ID,
			)

			return nil
		})
	}

	err := g.Wait()

	elapsed := time.Since(startTime)
	br.logger.Info("batch scan complete",
		"total_targets", len(targets),
		"elapsed", elapsed,
	)

	return br.results, err
}
