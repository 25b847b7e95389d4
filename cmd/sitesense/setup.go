package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rnks2003/proj-sitesense/internal/api"
	"github.com/rnks2003/proj-sitesense/internal/cache"
	"github.com/rnks2003/proj-sitesense/internal/config"
	"github.com/rnks2003/proj-sitesense/internal/lifecycle"
	"github.com/rnks2003/proj-sitesense/internal/log"
)

// buildConfig assembles configuration for a command invocation.
// Precedence: flags > environment > config file > defaults.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user explicitly specified a config file path, error if not
	// found. If no path was specified, silently skip when no file exists.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cf.Apply(cfg)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	config.ApplyEnvironment(cfg)

	apiBase, err := cmd.Flags().GetString("api-base")
	if err != nil {
		return nil, err
	}
	if apiBase != "" {
		cfg.APIBase = apiBase
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the redacting structured logger for this invocation
// and installs it as the process default.
func setupLogger(cfg *config.Config) *slog.Logger {
	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}

// newClient creates the scan service client from configuration.
func newClient(cfg *config.Config) (*api.Client, error) {
	client, err := api.NewClient(cfg.APIBase, cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	return client, nil
}

// openStore opens the local scan cache.
func openStore(cfg *config.Config) (*cache.Store, error) {
	store, err := cache.Open(cfg.DBDir, cache.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open scan cache: %w", err)
	}
	return store, nil
}

// newController wires a lifecycle controller for one scan sequence.
func newController(client *api.Client, store *cache.Store, logger *slog.Logger, cfg *config.Config, sink lifecycle.Sink) *lifecycle.Controller {
	return lifecycle.New(client, store,
		lifecycle.WithSink(sink),
		lifecycle.WithLogger(logger),
		lifecycle.WithPolicy(lifecycle.PolicyFromConfig(cfg)),
	)
}

// consoleSink prints lifecycle status lines to a writer. Status lines go
// to stderr in practice so rendered reports on stdout stay clean.
type consoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsoleSink(out io.Writer) *consoleSink {
	return &consoleSink{out: out}
}

// Status prints a status line.
func (s *consoleSink) Status(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, text)
}

// HistoryChanged is a no-op for the CLI; history is re-read on demand.
func (s *consoleSink) HistoryChanged() {}
