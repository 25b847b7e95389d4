package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rnks2003/proj-sitesense/internal/api"
	"github.com/rnks2003/proj-sitesense/internal/cache"
	"github.com/rnks2003/proj-sitesense/internal/config"
	"github.com/rnks2003/proj-sitesense/internal/lifecycle"
	"github.com/rnks2003/proj-sitesense/internal/model"
	"github.com/rnks2003/proj-sitesense/internal/report"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url]",
		Short: "Submit a website for analysis and wait for results",
		Long: `Scan submits one or more URLs to the analysis service, polls each scan
to completion, caches the result locally, and renders the aggregated
report with per-category scores and recommendations.

Examples:
  # Scan a single website
  sitesense scan https://example.com

  # Scan several websites concurrently
  sitesense scan https://a.example https://b.example https://c.example

  # Output a JSON report
  sitesense scan --json https://example.com

  # Write a markdown report to a file
  sitesense scan --markdown -o report.md https://example.com

  # Use a custom configuration file
  sitesense scan -c myconfig.yaml https://example.com`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Scan behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultRequestTimeout,
		"HTTP timeout for each service request")
	cmd.Flags().Duration("poll-interval", config.DefaultPollInterval,
		"Delay between scan status polls")
	cmd.Flags().Int("max-attempts", config.DefaultMaxPollAttempts,
		"Maximum number of status polls before giving up")
	cmd.Flags().Bool("no-watch", false,
		"Create scans and exit without waiting for results")

	// Batch scanning flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent scans")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildScanConfig(cmd, args)
	if err != nil {
		return err
	}

	noWatch, err := cmd.Flags().GetBool("no-watch")
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runScan(ctx, cfg, logger, noWatch)
}

// buildScanConfig overlays scan command flags onto the shared config.
func buildScanConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, err
	}

	cfg.RequestTimeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("poll-interval") {
		cfg.PollInterval, err = cmd.Flags().GetDuration("poll-interval")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("max-attempts") {
		cfg.MaxPollAttempts, err = cmd.Flags().GetInt("max-attempts")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("batch") {
		cfg.BatchSize, err = cmd.Flags().GetInt("batch")
		if err != nil {
			return nil, err
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	// Positional arguments are the target URLs
	cfg.Targets = args

	return cfg, nil
}

// runScan executes the scan against all targets.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, noWatch bool) error {
	if len(cfg.Targets) == 0 {
		return errors.New("no targets provided (specify one or more URLs as arguments)")
	}

	logger.Info("starting scan",
		"targets", cfg.Targets,
		"batchSize", cfg.BatchSize,
		"noWatch", noWatch,
	)

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("scan cache opened", "dir", cfg.DBDir)

	if noWatch {
		return runCreateOnly(ctx, cfg, client, store, logger)
	}

	// Use the batch runner for parallel scanning if multiple targets
	if len(cfg.Targets) > 1 && cfg.BatchSize > 1 {
		return runBatchScan(ctx, cfg, client, store, logger)
	}

	return runSequentialScan(ctx, cfg, client, store, logger)
}

// runCreateOnly submits scans without waiting for results. Created scans
// land in the cache as queued; 'sitesense show' picks them up later.
func runCreateOnly(ctx context.Context, cfg *config.Config, client *api.Client, store *cache.Store, logger *slog.Logger) error {
	var errs []error
	for _, target := range cfg.Targets {
		if err := api.ValidateTargetURL(target); err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", target, err)
			errs = append(errs, err)
			continue
		}

		record, err := client.Create(ctx, target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Scan error for %s: %v\n", target, err)
			errs = append(errs, err)
			continue
		}

		if err := store.Put(ctx, record); err != nil {
			logger.Warn("failed to cache scan record", "scan_id", record.ID, "error", err)
		}

		fmt.Printf("Created scan %s for %s\n", record.ID, target)
	}

	return errors.Join(errs...)
}

// runSequentialScan scans targets one at a time.
func runSequentialScan(ctx context.Context, cfg *config.Config, client *api.Client, store *cache.Store, logger *slog.Logger) error {
	sink := newConsoleSink(os.Stderr)

	var failed int
	for _, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Fprintf(os.Stderr, "Scanning %s...\n", target)
		startTime := time.Now()

		controller := newController(client, store, logger, cfg, sink)
		record, err := controller.Create(ctx, target)
		if err != nil {
			logger.Error("scan failed", "target", target, "error", err)
			fmt.Fprintf(os.Stderr, "Scan error for %s: %v\n", target, err)
			failed++
			continue
		}

		elapsed := time.Since(startTime)
		fmt.Fprintf(os.Stderr, "Scan finished in %s\n\n", elapsed.Round(time.Millisecond))

		if err := outputReport(cfg, record); err != nil {
			logger.Error("report failed", "target", target, "error", err)
			failed++
		}
	}

	if failed == len(cfg.Targets) {
		return errors.New("all scans failed")
	}
	return nil
}

// runBatchScan scans multiple targets concurrently using the batch runner.
func runBatchScan(ctx context.Context, cfg *config.Config, client *api.Client, store *cache.Store, logger *slog.Logger) error {
	fmt.Fprintf(os.Stderr, "Starting batch scan of %d targets (concurrency: %d)...\n\n",
		len(cfg.Targets), cfg.BatchSize)

	startTime := time.Now()

	// Batch scans share the store and client but each gets its own
	// controller; status lines from concurrent scans would interleave,
	// so the sink stays quiet and the batch summary speaks instead.
	runner := lifecycle.NewBatchRunner(
		func() *lifecycle.Controller {
			return newController(client, store, logger, cfg, lifecycle.NopSink{})
		},
		lifecycle.WithConcurrency(cfg.BatchSize),
		lifecycle.WithBatchLogger(logger),
	)

	results, err := runner.Run(ctx, cfg.Targets)
	if err != nil {
		return err
	}

	var failed int
	for i, result := range results {
		if result.Err != nil {
			fmt.Fprintf(os.Stderr, "[%d/%d] Scan failed: %s (%v)\n", i+1, len(results), result.Target, result.Err)
			failed++
			continue
		}

		fmt.Fprintf(os.Stderr, "[%d/%d] Scan completed: %s\n", i+1, len(results), result.Target)
		if err := outputReport(cfg, result.Record); err != nil {
			logger.Error("report failed", "target", result.Target, "error", err)
			failed++
		}
	}

	elapsed := time.Since(startTime)
	fmt.Fprintf(os.Stderr, "\nBatch scan completed in %s\n", elapsed.Round(time.Millisecond))

	if failed == len(results) {
		return errors.New("all scans failed")
	}
	return nil
}

// outputReport renders the scan record in the requested format.
func outputReport(cfg *config.Config, record *model.ScanRecord) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	// JSON output (full record wrapped with version metadata)
	if cfg.JSONReport {
		writer := report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
		_, err := writer.Write(record)
		return err
	}

	// Markdown output
	if cfg.MarkdownReport {
		writer := report.NewMarkdownWriter(output)
		_, err := writer.Write(record)
		return err
	}

	// Human-readable report (default)
	writer := report.NewTextWriter(output, report.WithVerbose(cfg.Verbose))
	_, err := writer.Write(record)
	return err
}
